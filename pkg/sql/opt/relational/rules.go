// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package relational

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/cockroachdb/volcano/pkg/sql/opt/xform"
)

// Rule names.
const (
	JoinCommuteRule     = "JoinCommute"
	JoinAssociateRule   = "JoinAssociate"
	FilterMergeRule     = "FilterMerge"
	ImplementScanRule   = "ImplementScan"
	ImplementJoinRule   = "ImplementJoin"
	ImplementFilterRule = "ImplementFilter"
	EnforceSortRule     = "EnforceSort"
)

// preProcessRules run in the PreProcess phase. Every other rule runs in the
// Optimize phase.
var preProcessRules = map[string]bool{
	FilterMergeRule: true,
}

// Rules returns every rule of the algebra, in the order they should be
// registered.
func Rules() []xform.Rule {
	return []xform.Rule{
		filterMerge{},
		joinCommute{},
		joinAssociate{},
		implementScan{},
		implementJoin{},
		implementFilter{},
		enforceSort{},
	}
}

// Install registers the rules with the optimizer and assigns them to their
// phases. Rules not in the list stay disabled.
func Install(o *xform.Optimizer, rules []xform.Rule) error {
	var pre, optimize []string
	for _, r := range rules {
		if err := o.AddRule(r); err != nil {
			return err
		}
		if preProcessRules[r.Name()] {
			pre = append(pre, r.Name())
		} else {
			optimize = append(optimize, r.Name())
		}
	}
	o.SetPhaseRules(xform.PreProcess, pre...)
	o.SetPhaseRules(xform.Optimize, optimize...)
	return nil
}

// physicalInput refers to the unordered physical subset of the set supplying
// the i-th input of the given bound node.
func physicalInput(c *xform.RuleCall, node, i int) *memo.Expr {
	m := c.Memo()
	set := m.InputSubset(c.Node(node), i).Set()
	return memo.Ref(m.RequireSubset(set, physical.Physical))
}

// joinCommute swaps the inputs of a join.
type joinCommute struct{}

func (joinCommute) Name() string { return JoinCommuteRule }

func (joinCommute) Pattern() *xform.Pattern {
	return &xform.Pattern{Op: JoinOp}
}

func (joinCommute) OnMatch(c *xform.RuleCall) error {
	c.Transform(NewJoin(c.Input(1), c.Input(0)))
	return nil
}

// joinAssociate rewrites (A join B) join C into A join (B join C).
type joinAssociate struct{}

func (joinAssociate) Name() string { return JoinAssociateRule }

func (joinAssociate) Pattern() *xform.Pattern {
	return &xform.Pattern{Op: JoinOp, Inputs: []*xform.Pattern{{Op: JoinOp}, nil}}
}

func (joinAssociate) OnMatch(c *xform.RuleCall) error {
	a, b := c.NodeInput(1, 0), c.NodeInput(1, 1)
	c.Transform(NewJoin(a, NewJoin(b, c.Input(1))))
	return nil
}

// filterMerge combines two adjacent filters into one.
type filterMerge struct{}

func (filterMerge) Name() string { return FilterMergeRule }

func (filterMerge) Pattern() *xform.Pattern {
	return &xform.Pattern{Op: FilterOp, Inputs: []*xform.Pattern{{Op: FilterOp}}}
}

// Weight implements the xform.WeightedRule interface. Merging filters always
// helps, so it runs ahead of other rules.
func (filterMerge) Weight() float64 { return 2 }

func (filterMerge) OnMatch(c *xform.RuleCall) error {
	outer, ok := c.Node(0).Op().(Filter)
	if !ok {
		return errors.AssertionFailedf("expected filter, got %s", c.Node(0).Op().Name())
	}
	inner := c.Node(1).Op().(Filter)
	c.Transform(NewFilter(outer.Predicate+" AND "+inner.Predicate, c.NodeInput(1, 0)))
	return nil
}

type implementScan struct{}

func (implementScan) Name() string { return ImplementScanRule }

func (implementScan) Pattern() *xform.Pattern {
	return &xform.Pattern{Op: ScanOp}
}

func (implementScan) OnMatch(c *xform.RuleCall) error {
	scan := c.Node(0).Op().(Scan)
	c.Transform(memo.NewExpr(TableScan{Table: scan.Table}, physical.Physical))
	return nil
}

type implementJoin struct{}

func (implementJoin) Name() string { return ImplementJoinRule }

func (implementJoin) Pattern() *xform.Pattern {
	return &xform.Pattern{Op: JoinOp}
}

func (implementJoin) OnMatch(c *xform.RuleCall) error {
	c.Transform(memo.NewExpr(HashJoin{}, physical.Physical, physicalInput(c, 0, 0), physicalInput(c, 0, 1)))
	return nil
}

type implementFilter struct{}

func (implementFilter) Name() string { return ImplementFilterRule }

func (implementFilter) Pattern() *xform.Pattern {
	return &xform.Pattern{Op: FilterOp}
}

func (implementFilter) OnMatch(c *xform.RuleCall) error {
	f := c.Node(0).Op().(Filter)
	c.Transform(memo.NewExpr(Select{Predicate: f.Predicate}, physical.Physical, physicalInput(c, 0, 0)))
	return nil
}

// enforceSort places a sort on top of an unordered physical node, for every
// ordering required of the node's set.
type enforceSort struct{}

func (enforceSort) Name() string { return EnforceSortRule }

func (enforceSort) Pattern() *xform.Pattern {
	return &xform.Pattern{Predicate: func(n *memo.Node) bool {
		t := n.Traits()
		return t.Convention == physical.PhysicalConvention && t.Ordering.Any() && n.Op().Name() != SortOp
	}}
}

// Matches implements the xform.RuleMatcher interface. A sort is only needed
// if some consumer requires an ordering.
func (enforceSort) Matches(c *xform.RuleCall) bool {
	return len(requiredOrderings(c)) > 0
}

func (enforceSort) OnMatch(c *xform.RuleCall) error {
	m := c.Memo()
	unordered := m.RequireSubset(m.SetOf(c.Node(0)).ID(), physical.Physical)
	for _, o := range requiredOrderings(c) {
		c.Transform(memo.NewExpr(Sort{Ordering: o}, physical.Physical.WithOrdering(o), memo.Ref(unordered)))
	}
	return nil
}

func requiredOrderings(c *xform.RuleCall) []physical.Ordering {
	m := c.Memo()
	var res []physical.Ordering
	for _, sub := range m.Subsets(m.SetOf(c.Node(0))) {
		t := sub.Traits()
		if t.Convention == physical.PhysicalConvention && !t.Ordering.Any() {
			res = append(res, t.Ordering)
		}
	}
	return res
}
