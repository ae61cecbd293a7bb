// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package leaktest reports goroutines that a test leaves running.
package leaktest

import (
	"time"

	"go.uber.org/goleak"
)

// TB is the subset of testing.TB used by AfterTest.
type TB interface {
	Helper()
	Failed() bool
	Error(args ...interface{})
}

// AfterTest snapshots the goroutines currently running and returns a function
// that fails the test if goroutines started since are still running. Use it
// as:
//
//	defer leaktest.AfterTest(t)()
func AfterTest(t TB) func() {
	opts := []goleak.Option{
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
		goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	}
	return func() {
		t.Helper()
		// A failed test may leave goroutines behind; the failure is what
		// matters.
		if t.Failed() {
			return
		}
		var err error
		for i := 0; i < 5; i++ {
			if err = goleak.Find(opts...); err == nil {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		t.Error(err)
	}
}
