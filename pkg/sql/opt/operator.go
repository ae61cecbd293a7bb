// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

// Operator describes one algebraic operation stored in the memo. Operators are
// immutable values supplied by the rule library; the search engine only
// inspects them through this interface.
type Operator interface {
	// Name returns the name of the operator, e.g. "inner-join". Rule patterns
	// select operators by name.
	Name() string

	// Digest returns a string that uniquely identifies the operator together
	// with any private arguments it carries (table name, filter, etc). Inputs
	// are not part of the digest. Two operators with equal digests are
	// interchangeable.
	Digest() string
}
