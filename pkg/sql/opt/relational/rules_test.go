// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package relational_test

import (
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/volcano/pkg/sql/opt/testutils/opttester"
	"github.com/cockroachdb/volcano/pkg/util/leaktest"
	"github.com/cockroachdb/volcano/pkg/util/log"
)

// TestRules runs the files in testdata. A single file can be run like this:
//
//	go test ./pkg/sql/opt/relational -run 'TestRules/joins'
func TestRules(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			tester := opttester.New(d.Input)
			return tester.RunCommand(t, d)
		})
	})
}
