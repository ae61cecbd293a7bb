// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package util

import (
	"sync"
	"time"
)

// Throttle admits at most one event per interval and counts the events it
// drops in between. The zero value admits every event.
//
// Use log.Throttled for log messages; it also honors the verbosity flags.
type Throttle struct {
	// Interval is the minimum time between admitted events.
	Interval time.Duration

	mu struct {
		sync.Mutex
		last    time.Time
		dropped int
	}
}

// NewThrottle returns a throttle admitting one event per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{Interval: interval}
}

// Admit reports whether an event occurring at now is admitted. An admitted
// event also reports how many events were dropped since the previous one.
func (t *Throttle) Admit(now time.Time) (ok bool, dropped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mu.last.IsZero() && now.Sub(t.mu.last) < t.Interval {
		t.mu.dropped++
		return false, 0
	}
	dropped = t.mu.dropped
	t.mu.last = now
	t.mu.dropped = 0
	return true, dropped
}

// Reset forgets the previous event, so that the next one is admitted.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.last = time.Time{}
	t.mu.dropped = 0
}
