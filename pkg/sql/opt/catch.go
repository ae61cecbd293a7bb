// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"runtime"

	"github.com/cockroachdb/errors"
)

// CatchOptimizerError recovers from a panic raised inside the optimizer and
// stores it in *errp. It must be deferred directly:
//
//	defer opt.CatchOptimizerError(&err)
//
// The search engine reports invariant violations (such as applying a stale
// rule match) by panicking with an assertion failure; this converts them into
// errors at the API boundary without ever discarding them. It is only sound
// because the memo is owned by a single optimizer and no locks are held.
func CatchOptimizerError(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		// The runtime throws plain strings for unrecoverable failures (bad
		// goroutine state, allocator problems). Crash.
		panic(r)
	}
	if errors.HasInterface(err, (*runtime.Error)(nil)) {
		// Runtime errors such as nil dereferences indicate engine defects.
		err = errors.HandleAsAssertionFailure(err)
	}
	*errp = err
}
