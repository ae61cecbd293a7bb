// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package relational

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
)

// filterSelectivity is the fraction of rows kept by each conjunct of a filter.
const filterSelectivity = 0.1

// Table describes a base table.
type Table struct {
	Name string
	Rows float64
}

// Catalog holds the tables a query may scan.
type Catalog struct {
	tables map[string]*Table
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// AddTable adds a table with the given row count.
func (c *Catalog) AddTable(name string, rows float64) error {
	if name == "" {
		return errors.New("table name must not be empty")
	}
	if rows <= 0 || math.IsInf(rows, 0) || math.IsNaN(rows) {
		return errors.Newf("table %q: row count must be positive, got %g", name, rows)
	}
	if _, ok := c.tables[name]; ok {
		return errors.Newf("table %q already exists", name)
	}
	c.tables[name] = &Table{Name: name, Rows: rows}
	return nil
}

// Table returns the named table.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// TableNames returns the names of all tables, sorted.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) tableRows(name string) float64 {
	if t, ok := c.tables[name]; ok {
		return t.Rows
	}
	return 1
}

// Coster estimates costs from table row counts.
//
//   - a table scan costs one unit per row.
//   - a hash join costs one unit per probe (left) row and two per build (right)
//     row, so the smaller relation belongs on the right.
//   - a select costs one unit per input row.
//   - a sort of n rows costs n*log2(n).
//
// Logical operators cannot be implemented and have infinite cost.
type Coster struct {
	cat *Catalog
}

var _ memo.Coster = (*Coster)(nil)

// NewCoster returns a coster for queries over the catalog.
func NewCoster(cat *Catalog) *Coster {
	return &Coster{cat: cat}
}

// ComputeCost implements the memo.Coster interface.
func (c *Coster) ComputeCost(m *memo.Memo, n *memo.Node) memo.Cost {
	switch op := n.Op().(type) {
	case TableScan:
		return memo.Cost{C: c.cat.tableRows(op.Table)}
	case HashJoin:
		left := c.Rows(m, m.InputSubset(n, 0).Set())
		right := c.Rows(m, m.InputSubset(n, 1).Set())
		return memo.Cost{C: left + 2*right}
	case Select:
		return memo.Cost{C: c.Rows(m, m.InputSubset(n, 0).Set())}
	case Sort:
		rows := c.Rows(m, m.InputSubset(n, 0).Set())
		return memo.Cost{C: rows * math.Max(1, math.Log2(rows))}
	}
	return memo.MaxCost
}

// Rows estimates the number of rows produced by the set. All nodes of a set
// produce the same rows, so the first logical node decides.
func (c *Coster) Rows(m *memo.Memo, id memo.SetID) float64 {
	for _, n := range m.Nodes(m.Set(id)) {
		switch op := n.Op().(type) {
		case Scan:
			return c.cat.tableRows(op.Table)
		case Join:
			return math.Max(c.Rows(m, m.InputSubset(n, 0).Set()), c.Rows(m, m.InputSubset(n, 1).Set()))
		case Filter:
			return c.Rows(m, m.InputSubset(n, 0).Set()) * math.Pow(filterSelectivity, float64(op.Conjuncts()))
		}
	}
	return 1
}
