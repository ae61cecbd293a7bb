// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import (
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
)

// Expr describes a tree of operators to be added to the memo. Interior
// entries construct new nodes; leaves may refer to an existing subset by ID
// (see Ref), which is how rules splice new operators on top of alternatives
// that are already in the memo.
type Expr struct {
	Op     opt.Operator
	Traits physical.TraitSet
	Inputs []*Expr

	// Subset, if non-zero, refers to an existing subset. All other fields are
	// ignored.
	Subset SubsetID
}

// Ref returns an Expr leaf that refers to an existing subset.
func Ref(id SubsetID) *Expr {
	return &Expr{Subset: id}
}

// NewExpr returns an Expr for the given operator, traits and inputs.
func NewExpr(op opt.Operator, traits physical.TraitSet, inputs ...*Expr) *Expr {
	return &Expr{Op: op, Traits: traits, Inputs: inputs}
}

// IsRef returns true if the Expr refers to an existing subset.
func (e *Expr) IsRef() bool {
	return e.Subset != 0
}
