// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"time"

	"github.com/cockroachdb/volcano/pkg/util"
)

// Throttled rate limits a stream of progress messages.
type Throttled struct {
	t   *util.Throttle
	now func() time.Time
}

// Throttle returns a limiter allowing one message per interval.
func Throttle(interval time.Duration) Throttled {
	return Throttled{t: util.NewThrottle(interval), now: time.Now}
}

// Allow reports whether the next message should be emitted, and how many
// messages were suppressed since the last one. Everything is allowed at
// verbosity 2 and above.
func (l Throttled) Allow() (bool, int) {
	if V(2) {
		return true, 0
	}
	return l.t.Admit(l.now())
}

// Reset allows the next message regardless of the interval.
func (l Throttled) Reset() {
	l.t.Reset()
}
