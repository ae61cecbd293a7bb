// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
)

// RuleMatch is a binding of a rule to nodes of the memo, waiting in the queue
// to be applied.
type RuleMatch struct {
	o       *Optimizer
	rule    Rule
	binding []memo.NodeID
	digest  string

	// seq orders matches with equal priority by the order they were queued.
	seq uint64
}

func newRuleMatch(o *Optimizer, rule Rule, binding []memo.NodeID) *RuleMatch {
	var b strings.Builder
	b.WriteString(rule.Name())
	b.WriteString("/[")
	for i, id := range binding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	b.WriteByte(']')
	return &RuleMatch{
		o:       o,
		rule:    rule,
		binding: append([]memo.NodeID(nil), binding...),
		digest:  b.String(),
	}
}

// Rule returns the matched rule.
func (m *RuleMatch) Rule() Rule {
	return m.rule
}

// Binding returns the bound nodes in pattern pre-order.
func (m *RuleMatch) Binding() []memo.NodeID {
	return m.binding
}

// Digest identifies the match by rule name and bound nodes.
func (m *RuleMatch) Digest() string {
	return m.digest
}

func (m *RuleMatch) String() string {
	return m.digest
}

// Matches returns true if the binding is still valid in the current memo and
// the rule still accepts it. A match goes stale when one of its nodes is found
// to duplicate another node, or when a merge changes the inputs it was bound
// through.
func (m *RuleMatch) Matches() bool {
	pos := 0
	if !m.rule.Pattern().validate(&m.o.mem, m.binding, &pos) || pos != len(m.binding) {
		return false
	}
	if rm, ok := m.rule.(RuleMatcher); ok {
		return rm.Matches(&RuleCall{ctx: context.Background(), o: m.o, match: m})
	}
	return true
}

// OnMatch applies the rule. It returns an error marked with opt.ErrTimeout if
// the search budget is exhausted, without calling the rule.
func (m *RuleMatch) OnMatch(ctx context.Context) error {
	if err := m.o.checkCancel(ctx); err != nil {
		return err
	}
	m.o.recordApplication(m.rule)
	before := m.o.mem.NodeCount()
	if err := m.rule.OnMatch(&RuleCall{ctx: ctx, o: m.o, match: m}); err != nil {
		return err
	}
	if m.o.appliedRule != nil {
		m.o.appliedRule(m.rule, m.binding, m.o.mem.NodeCount()-before)
	}
	return nil
}

// RuleCall gives a rule access to its binding and lets it register
// alternatives.
type RuleCall struct {
	ctx   context.Context
	o     *Optimizer
	match *RuleMatch
}

// Context returns the context of the search.
func (c *RuleCall) Context() context.Context {
	return c.ctx
}

// Memo returns the memo being searched.
func (c *RuleCall) Memo() *memo.Memo {
	return &c.o.mem
}

// Rule returns the rule being applied.
func (c *RuleCall) Rule() Rule {
	return c.match.rule
}

// NodeCount returns the number of bound nodes.
func (c *RuleCall) NodeCount() int {
	return len(c.match.binding)
}

// Node returns the i-th bound node, in pattern pre-order. Node(0) is the node
// the pattern's root matched.
func (c *RuleCall) Node(i int) *memo.Node {
	return c.o.mem.Node(c.match.binding[i])
}

// Input returns a reference to the i-th input of the root node, for use in
// the expressions passed to Transform.
func (c *RuleCall) Input(i int) *memo.Expr {
	return memo.Ref(c.o.mem.InputSubset(c.Node(0), i).ID())
}

// NodeInput returns a reference to the i-th input of the given bound node.
func (c *RuleCall) NodeInput(node, i int) *memo.Expr {
	return memo.Ref(c.o.mem.InputSubset(c.Node(node), i).ID())
}

// Transform registers e as equivalent to the root node of the binding and
// returns the ID of the node for e's top operator. If e is a reference to an
// existing subset, such as Input(0) of a redundant operator, the two sets are
// merged once the rule returns.
func (c *RuleCall) Transform(e *memo.Expr) memo.NodeID {
	return c.o.mem.Register(e, c.o.mem.SetOf(c.Node(0)).ID())
}
