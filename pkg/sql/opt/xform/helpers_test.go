// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"testing"

	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/stretchr/testify/require"
)

type testOp struct {
	name, arg string
}

func (o testOp) Name() string { return o.name }

func (o testOp) Digest() string {
	if o.arg == "" {
		return o.name
	}
	return o.name + " " + o.arg
}

func logical(name, arg string, inputs ...*memo.Expr) *memo.Expr {
	return memo.NewExpr(testOp{name: name, arg: arg}, physical.Logical, inputs...)
}

func phys(name, arg string, inputs ...*memo.Expr) *memo.Expr {
	return memo.NewExpr(testOp{name: name, arg: arg}, physical.Physical, inputs...)
}

func joinQuery(left, right string) *memo.Expr {
	return logical("join", "", logical("scan", left), logical("scan", right))
}

// rowsCoster maps table names to row counts. A table scan costs its row
// count, and a hash join costs the rows of its left input plus twice the rows
// of its right (build) input. Logical operators cannot be implemented.
type rowsCoster map[string]float64

func (c rowsCoster) ComputeCost(m *memo.Memo, n *memo.Node) memo.Cost {
	switch n.Op().Name() {
	case "table-scan":
		return memo.Cost{C: c[n.Op().(testOp).arg]}
	case "hash-join":
		left := c.rows(m, m.InputSubset(n, 0).Set())
		right := c.rows(m, m.InputSubset(n, 1).Set())
		return memo.Cost{C: left + 2*right}
	}
	return memo.MaxCost
}

func (c rowsCoster) rows(m *memo.Memo, id memo.SetID) float64 {
	for _, n := range m.Nodes(m.Set(id)) {
		if name := n.Op().Name(); name == "scan" || name == "table-scan" {
			return c[n.Op().(testOp).arg]
		}
	}
	return 1
}

type testRule struct {
	name    string
	pattern *Pattern
	onMatch func(call *RuleCall) error
}

func (r *testRule) Name() string { return r.name }
func (r *testRule) Pattern() *Pattern { return r.pattern }
func (r *testRule) OnMatch(c *RuleCall) error {
	if r.onMatch == nil {
		return nil
	}
	return r.onMatch(c)
}

type weightedRule struct {
	*testRule
	weight float64
}

func (r weightedRule) Weight() float64 { return r.weight }

func physicalInput(c *RuleCall, i int) *memo.Expr {
	m := c.Memo()
	return memo.Ref(m.RequireSubset(m.InputSubset(c.Node(0), i).Set(), physical.Physical))
}

func joinCommute() *testRule {
	return &testRule{
		name:    "JoinCommute",
		pattern: &Pattern{Op: "join"},
		onMatch: func(c *RuleCall) error {
			c.Transform(logical("join", "", c.Input(1), c.Input(0)))
			return nil
		},
	}
}

func implementScan() *testRule {
	return &testRule{
		name:    "ImplementScan",
		pattern: &Pattern{Op: "scan"},
		onMatch: func(c *RuleCall) error {
			c.Transform(phys("table-scan", c.Node(0).Op().(testOp).arg))
			return nil
		},
	}
}

func implementJoin() *testRule {
	return &testRule{
		name:    "ImplementJoin",
		pattern: &Pattern{Op: "join"},
		onMatch: func(c *RuleCall) error {
			c.Transform(phys("hash-join", "", physicalInput(c, 0), physicalInput(c, 1)))
			return nil
		},
	}
}

// countingRule counts its applications and does nothing else.
func countingRule(name, op string, count *int) *testRule {
	return &testRule{
		name:    name,
		pattern: &Pattern{Op: op},
		onMatch: func(c *RuleCall) error {
			*count++
			return nil
		},
	}
}

func newTestOptimizer(t *testing.T, coster memo.Coster, rules ...Rule) *Optimizer {
	t.Helper()
	o := New(coster, WithConfig(Config{ImportanceDecay: DefaultImportanceDecay, CheckInvariants: true}))
	for _, r := range rules {
		require.NoError(t, o.AddRule(r))
	}
	return o
}
