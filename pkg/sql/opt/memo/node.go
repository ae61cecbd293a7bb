// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import (
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
)

// NodeID identifies a candidate node in the memo. IDs are assigned in
// registration order starting at 1; 0 means no node.
type NodeID uint32

// Node is one concrete algebraic expression registered in the memo: an
// operator plus references to the subsets that supply its inputs. The
// operator, traits and input references never change after registration.
// Merges can make the referenced subsets forward elsewhere, which is why
// inputs must always be resolved through the memo.
type Node struct {
	id     NodeID
	op     opt.Operator
	traits physical.TraitSet
	inputs []SubsetID

	// set is the equivalence set the node was registered in, or the set that
	// absorbed it. It is kept current by merges but should still be resolved
	// through Memo.Set.
	set SetID

	// cost is the cumulative cost of the node: its local cost plus the best
	// cost of each input subset. It only ever decreases.
	cost Cost

	// dup is set when a merge proved the node identical to another node. A
	// duplicate node is no longer live; matches that bind it are stale.
	dup NodeID

	// hash is the digest key under which the node is interned.
	hash uint64
}

// ID returns the node's identifier.
func (n *Node) ID() NodeID {
	return n.id
}

// Op returns the node's operator.
func (n *Node) Op() opt.Operator {
	return n.op
}

// Traits returns the physical properties the node provides.
func (n *Node) Traits() physical.TraitSet {
	return n.traits
}

// InputCount returns the number of inputs of the node.
func (n *Node) InputCount() int {
	return len(n.inputs)
}

// Input returns the subset referenced by the i-th input as registered. Use
// Memo.Subset to resolve it to the canonical subset.
func (n *Node) Input(i int) SubsetID {
	return n.inputs[i]
}

// Cost returns the cumulative cost of the node.
func (n *Node) Cost() Cost {
	return n.cost
}

// IsLive returns false if the node was found to duplicate another node.
func (n *Node) IsLive() bool {
	return n.dup == 0
}
