// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import "github.com/cockroachdb/errors"

// ErrTimeout is raised during rule application when the time or resource
// budget of the search is exhausted. It is the only expected way for a search
// to end early; the optimizer treats it as graceful degradation and returns the
// best plan found so far. Rules may return it wrapped.
var ErrTimeout = errors.New("optimizer search budget exhausted")

// ErrNoPlan marks errors returned when the root has no implementable plan with
// a finite cost once the search ends.
var ErrNoPlan = errors.New("could not find an implementable plan")

// IsTimeout returns true if err is, or wraps, ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
