// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/xlab/treeprint"
)

// Stats summarizes the size of the memo.
type Stats struct {
	Sets    int
	Subsets int
	Nodes   int
	Merges  int
}

// Stats returns counts of the live sets, canonical subsets and live nodes of
// the memo, and the number of merges performed so far.
func (m *Memo) Stats() Stats {
	st := Stats{Merges: m.merges}
	for _, s := range m.Sets() {
		st.Sets++
		st.Subsets += len(s.subsets)
		st.Nodes += len(m.Nodes(s))
	}
	return st
}

// FormatNode returns a one-line description of the node: its operator digest,
// traits, canonical inputs and cost.
func (m *Memo) FormatNode(n *Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "N%d %s", n.id, n.op.Digest())
	if !n.traits.Equals(physical.Logical) {
		fmt.Fprintf(&b, " %s", n.traits)
	}
	for i := range n.inputs {
		sub := m.InputSubset(n, i)
		fmt.Fprintf(&b, " S%d.%d", sub.set, sub.id)
	}
	if !n.cost.IsInfinite() {
		fmt.Fprintf(&b, " (cost=%s)", n.cost)
	}
	return b.String()
}

// String formats the live sets of the memo as a tree, listing the nodes of each
// set followed by its subsets and their best nodes.
func (m *Memo) String() string {
	st := m.Stats()
	tp := treeprint.New()
	header := fmt.Sprintf("memo (%d sets, %d subsets, %d nodes, %d merges)",
		st.Sets, st.Subsets, st.Nodes, st.Merges)
	if root := m.Root(); root != nil {
		header += fmt.Sprintf(" root=S%d.%d", root.set, root.id)
	}
	tp.SetValue(header)

	for _, s := range m.Sets() {
		branch := tp.AddBranch(fmt.Sprintf("S%d", s.id))
		for _, n := range m.Nodes(s) {
			branch.AddNode(m.FormatNode(n))
		}
		for _, sub := range m.Subsets(s) {
			line := fmt.Sprintf("subset %d [%s]", sub.id, sub.traits)
			if best := m.BestNode(sub); best != nil {
				line += fmt.Sprintf(" best=N%d cost=%s", best.id, sub.bestCost)
			} else {
				line += " best=none"
			}
			branch.AddNode(line)
		}
	}
	return tp.String()
}
