// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package relational is a small relational algebra for the plan search: scans,
// inner joins, and filters, with a hash join implementation, a sort enforcer,
// and a row-count cost model.
package relational

import (
	"strings"

	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
)

// Operator names.
const (
	ScanOp      = "scan"
	JoinOp      = "join"
	FilterOp    = "filter"
	TableScanOp = "table-scan"
	HashJoinOp  = "hash-join"
	SelectOp    = "select"
	SortOp      = "sort"
)

// Scan reads every row of a table.
type Scan struct {
	Table string
}

var _ opt.Operator = Scan{}

// Name implements the opt.Operator interface.
func (Scan) Name() string { return ScanOp }

// Digest implements the opt.Operator interface.
func (s Scan) Digest() string { return ScanOp + " " + s.Table }

// Join is an inner join of its two inputs.
type Join struct{}

// Name implements the opt.Operator interface.
func (Join) Name() string { return JoinOp }

// Digest implements the opt.Operator interface.
func (Join) Digest() string { return JoinOp }

// Filter keeps the rows of its input that satisfy a predicate. The predicate
// is opaque; each conjunct is assumed to keep a fixed fraction of the rows.
type Filter struct {
	Predicate string
}

// Name implements the opt.Operator interface.
func (Filter) Name() string { return FilterOp }

// Digest implements the opt.Operator interface.
func (f Filter) Digest() string { return FilterOp + " " + f.Predicate }

// Conjuncts returns the number of AND-ed terms of the predicate.
func (f Filter) Conjuncts() int {
	return strings.Count(f.Predicate, " AND ") + 1
}

// TableScan implements Scan.
type TableScan struct {
	Table string
}

// Name implements the opt.Operator interface.
func (TableScan) Name() string { return TableScanOp }

// Digest implements the opt.Operator interface.
func (s TableScan) Digest() string { return TableScanOp + " " + s.Table }

// HashJoin implements Join. It builds a hash table from its right input and
// probes it with its left input.
type HashJoin struct{}

// Name implements the opt.Operator interface.
func (HashJoin) Name() string { return HashJoinOp }

// Digest implements the opt.Operator interface.
func (HashJoin) Digest() string { return HashJoinOp }

// Select implements Filter.
type Select struct {
	Predicate string
}

// Name implements the opt.Operator interface.
func (Select) Name() string { return SelectOp }

// Digest implements the opt.Operator interface.
func (s Select) Digest() string { return SelectOp + " " + s.Predicate }

// Sort orders the rows of its input. It is the enforcer of orderings: the
// optimizer places it on top of an unordered alternative to provide a
// required ordering.
type Sort struct {
	Ordering physical.Ordering
}

// Name implements the opt.Operator interface.
func (Sort) Name() string { return SortOp }

// Digest implements the opt.Operator interface.
func (s Sort) Digest() string { return SortOp + " " + s.Ordering.String() }

// NewScan returns a logical scan of the table.
func NewScan(table string) *memo.Expr {
	return memo.NewExpr(Scan{Table: table}, physical.Logical)
}

// NewJoin returns a logical join of the two inputs.
func NewJoin(left, right *memo.Expr) *memo.Expr {
	return memo.NewExpr(Join{}, physical.Logical, left, right)
}

// NewFilter returns a logical filter of the input.
func NewFilter(predicate string, input *memo.Expr) *memo.Expr {
	return memo.NewExpr(Filter{Predicate: predicate}, physical.Logical, input)
}
