// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package relational

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"gopkg.in/yaml.v3"
)

// Query is a query in YAML form, together with the tables it reads:
//
//	tables:
//	  a: {rows: 1000}
//	  b: {rows: 10}
//	query:
//	  join:
//	    - scan: a
//	    - filter:
//	        predicate: b.x > 1
//	        input: {scan: b}
//	order_by: [1]
type Query struct {
	Tables  map[string]TableDef `yaml:"tables"`
	Root    QueryNode           `yaml:"query"`
	OrderBy []int32             `yaml:"order_by"`
}

// TableDef describes a table of a Query.
type TableDef struct {
	Rows float64 `yaml:"rows"`
}

// QueryNode is one operator of a Query. Exactly one field must be set.
type QueryNode struct {
	Scan   string      `yaml:"scan"`
	Join   []QueryNode `yaml:"join"`
	Filter *FilterNode `yaml:"filter"`
}

// FilterNode is the filter operator of a Query.
type FilterNode struct {
	Predicate string    `yaml:"predicate"`
	Input     QueryNode `yaml:"input"`
}

// LoadQuery reads a query from a YAML file.
func LoadQuery(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading query")
	}
	q, err := ParseQuery(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return q, nil
}

// ParseQuery parses a query in YAML form.
func ParseQuery(data []byte) (*Query, error) {
	var q Query
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, errors.Wrap(err, "parsing query")
	}
	return &q, nil
}

// Catalog returns a catalog holding the tables of the query.
func (q *Query) Catalog() (*Catalog, error) {
	cat := NewCatalog()
	for name, def := range q.Tables {
		if err := cat.AddTable(name, def.Rows); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// Build returns the expression of the query, checking that every scanned
// table is in the catalog.
func (q *Query) Build(cat *Catalog) (*memo.Expr, error) {
	return q.Root.build(cat)
}

// Required returns the traits the query result must have.
func (q *Query) Required() physical.TraitSet {
	if len(q.OrderBy) == 0 {
		return physical.Physical
	}
	o := make(physical.Ordering, len(q.OrderBy))
	for i, c := range q.OrderBy {
		o[i] = physical.OrderingColumn(c)
	}
	return physical.Physical.WithOrdering(o)
}

func (n *QueryNode) build(cat *Catalog) (*memo.Expr, error) {
	set := 0
	if n.Scan != "" {
		set++
	}
	if n.Join != nil {
		set++
	}
	if n.Filter != nil {
		set++
	}
	if set != 1 {
		return nil, errors.Newf("query node must have exactly one of scan, join, filter; found %d", set)
	}

	switch {
	case n.Scan != "":
		if _, ok := cat.Table(n.Scan); !ok {
			return nil, errors.Newf("unknown table %q", n.Scan)
		}
		return NewScan(n.Scan), nil

	case n.Join != nil:
		if len(n.Join) != 2 {
			return nil, errors.Newf("join must have 2 inputs, found %d", len(n.Join))
		}
		left, err := n.Join[0].build(cat)
		if err != nil {
			return nil, err
		}
		right, err := n.Join[1].build(cat)
		if err != nil {
			return nil, err
		}
		return NewJoin(left, right), nil

	default:
		if n.Filter.Predicate == "" {
			return nil, errors.New("filter must have a predicate")
		}
		input, err := n.Filter.Input.build(cat)
		if err != nil {
			return nil, errors.Wrapf(err, "filter %q", n.Filter.Predicate)
		}
		return NewFilter(n.Filter.Predicate, input), nil
	}
}
