// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package physical defines the physical properties (traits) that partition an
// equivalence set into subsets.
package physical

import (
	"strconv"
	"strings"
)

// Convention identifies the calling convention of an expression. Logical
// expressions have NoneConvention and cannot be executed; the optimizer must
// find expressions with PhysicalConvention to produce a plan.
type Convention uint8

const (
	// NoneConvention is the convention of logical expressions.
	NoneConvention Convention = iota
	// PhysicalConvention is the convention of implementable expressions.
	PhysicalConvention
)

func (c Convention) String() string {
	switch c {
	case NoneConvention:
		return "none"
	case PhysicalConvention:
		return "physical"
	default:
		return "convention(" + strconv.Itoa(int(c)) + ")"
	}
}

// OrderingColumn is the 1-based ordinal of an output column. A positive value
// means ascending order and a negative value means descending order.
type OrderingColumn int32

// Ascending returns true if the column is ordered ascending.
func (c OrderingColumn) Ascending() bool {
	return c > 0
}

func (c OrderingColumn) String() string {
	if c.Ascending() {
		return "+" + strconv.Itoa(int(c))
	}
	return strconv.Itoa(int(c))
}

// Ordering is a sequence of columns by which rows are sorted. An empty
// ordering means no ordering is required or provided.
type Ordering []OrderingColumn

// Any returns true if the ordering places no constraint on row order.
func (o Ordering) Any() bool {
	return len(o) == 0
}

// Provides returns true if rows sorted by o are also sorted by required,
// which is the case when required is a prefix of o.
func (o Ordering) Provides(required Ordering) bool {
	if len(required) > len(o) {
		return false
	}
	for i := range required {
		if o[i] != required[i] {
			return false
		}
	}
	return true
}

// Equals returns true if the two orderings are identical.
func (o Ordering) Equals(other Ordering) bool {
	return len(o) == len(other) && o.Provides(other)
}

func (o Ordering) String() string {
	var b strings.Builder
	for i, c := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// TraitSet is the set of physical properties an expression provides, or that
// a consumer requires of its input.
type TraitSet struct {
	Convention Convention
	Ordering   Ordering
}

// Logical is the trait set of logical expressions.
var Logical = TraitSet{Convention: NoneConvention}

// Physical is the trait set of implementable expressions with no ordering.
var Physical = TraitSet{Convention: PhysicalConvention}

// WithOrdering returns a copy of the trait set with the given ordering.
func (t TraitSet) WithOrdering(o Ordering) TraitSet {
	t.Ordering = append(Ordering(nil), o...)
	return t
}

// Satisfies returns true if an expression that provides t can be used where
// required is expected: the conventions match and t's ordering provides the
// required ordering.
func (t TraitSet) Satisfies(required TraitSet) bool {
	return t.Convention == required.Convention && t.Ordering.Provides(required.Ordering)
}

// Equals returns true if the two trait sets are identical.
func (t TraitSet) Equals(other TraitSet) bool {
	return t.Convention == other.Convention && t.Ordering.Equals(other.Ordering)
}

// Key returns a string that uniquely identifies the trait set. Equal trait
// sets have equal keys.
func (t TraitSet) Key() string {
	return t.String()
}

func (t TraitSet) String() string {
	if t.Ordering.Any() {
		return t.Convention.String()
	}
	return t.Convention.String() + " [" + t.Ordering.String() + "]"
}
