// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
)

// Rule is a transformation: a pattern of operators to look for in the memo,
// and an action that registers equivalent alternatives for each binding of
// the pattern. Rules are stateless; the same Rule can be used by many
// optimizers.
type Rule interface {
	// Name identifies the rule. It must be unique within an optimizer.
	Name() string

	// Pattern describes the operator tree the rule applies to.
	Pattern() *Pattern

	// OnMatch applies the rule to a binding of its pattern. It registers new
	// nodes through the call. A returned error that wraps opt.ErrTimeout ends
	// the search; any other error is reported as an optimizer failure.
	OnMatch(call *RuleCall) error
}

// RuleMatcher is implemented by rules that need a check beyond the structure
// of their pattern. Matches is consulted before a binding is queued and again
// before it is applied.
type RuleMatcher interface {
	Matches(call *RuleCall) bool
}

// WeightedRule is implemented by rules that should be scheduled ahead of, or
// behind, other rules matching the same part of the plan. The default weight
// is 1.
type WeightedRule interface {
	Weight() float64
}

func ruleWeight(r Rule) float64 {
	if w, ok := r.(WeightedRule); ok {
		return w.Weight()
	}
	return 1
}

// Pattern matches a node and, optionally, the nodes of its inputs.
type Pattern struct {
	// Op is the operator name to match. An empty Op matches any operator.
	Op string

	// Predicate, if set, must return true for the node to match.
	Predicate func(n *memo.Node) bool

	// Inputs are matched against the alternatives of the node's inputs. If
	// nil, the inputs are not constrained. Otherwise the node must have
	// exactly len(Inputs) inputs.
	Inputs []*Pattern
}

// Depth returns the number of levels of nodes the pattern binds.
func (p *Pattern) Depth() int {
	d := 0
	for _, in := range p.Inputs {
		if in == nil {
			continue
		}
		if id := in.Depth(); id > d {
			d = id
		}
	}
	return d + 1
}

// matchesNode checks the node itself against the pattern, without looking at
// its inputs.
func (p *Pattern) matchesNode(n *memo.Node) bool {
	if !n.IsLive() {
		return false
	}
	if p.Op != "" && p.Op != n.Op().Name() {
		return false
	}
	if p.Inputs != nil && len(p.Inputs) != n.InputCount() {
		return false
	}
	return p.Predicate == nil || p.Predicate(n)
}

// bind enumerates every binding of the pattern rooted at n. A binding lists
// the bound nodes in pre-order. A nil input pattern leaves that input
// unbound. The slice passed to emit is reused; emit must copy it.
func (p *Pattern) bind(m *memo.Memo, n *memo.Node, binding []memo.NodeID, emit func([]memo.NodeID)) {
	if !p.matchesNode(n) {
		return
	}
	p.bindInputs(m, n, 0, append(binding, n.ID()), emit)
}

func (p *Pattern) bindInputs(
	m *memo.Memo, n *memo.Node, i int, binding []memo.NodeID, emit func([]memo.NodeID),
) {
	for i < len(p.Inputs) && p.Inputs[i] == nil {
		i++
	}
	if i >= len(p.Inputs) {
		emit(binding)
		return
	}
	for _, child := range m.SubsetNodes(m.InputSubset(n, i)) {
		p.Inputs[i].bind(m, child, binding, func(b []memo.NodeID) {
			p.bindInputs(m, n, i+1, b, emit)
		})
	}
}

// validate checks that binding, starting at *pos, is still a binding of the
// pattern in the current memo: every node is live, matches its part of the
// pattern, and still supplies the input it was bound to.
func (p *Pattern) validate(m *memo.Memo, binding []memo.NodeID, pos *int) bool {
	if *pos >= len(binding) {
		return false
	}
	n := m.Node(binding[*pos])
	*pos++
	if !p.matchesNode(n) {
		return false
	}
	for i, in := range p.Inputs {
		if in == nil {
			continue
		}
		if *pos >= len(binding) {
			return false
		}
		child := m.Node(binding[*pos])
		sub := m.InputSubset(n, i)
		if m.SetOf(child).ID() != sub.Set() || !child.Traits().Satisfies(sub.Traits()) {
			return false
		}
		if !in.validate(m, binding, pos) {
			return false
		}
	}
	return true
}
