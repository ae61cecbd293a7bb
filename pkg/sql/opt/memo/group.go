// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import "github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"

// SetID identifies an equivalence set. Absorbed sets keep their ID, which the
// memo redirects to the surviving set.
type SetID uint32

// SubsetID identifies an equivalence subset. Subsets absorbed by a subset of
// the surviving set with the same traits keep their ID, which the memo
// redirects to the survivor.
type SubsetID uint32

// Set stores the candidate nodes proven to produce the same logical result.
// For each trait set that has been required of the set, it keeps a Subset
// that remembers the lowest cost node providing those traits.
type Set struct {
	id SetID

	// mergedInto is non-zero once the set has been absorbed by another set.
	mergedInto SetID

	// nodes lists every node registered in, or moved into, the set. Nodes that
	// became duplicates stay in the list but are skipped by iteration.
	nodes []NodeID

	// subsets is the list of subsets owned by the set, in creation order. The
	// subsetsMap maps a trait set key to an entry in that list.
	subsets    []SubsetID
	subsetsMap map[string]SubsetID

	// parents lists the nodes that have at least one input in this set.
	parents []NodeID
}

// ID returns the identifier of the set.
func (s *Set) ID() SetID {
	return s.id
}

// lookupSubset returns the subset of the set that has exactly the given
// traits, or 0 if there is none yet.
func (s *Set) lookupSubset(traits physical.TraitSet) SubsetID {
	return s.subsetsMap[traits.Key()]
}

// addSubset records a subset as belonging to the set.
func (s *Set) addSubset(sub *Subset) {
	if s.subsetsMap == nil {
		s.subsetsMap = make(map[string]SubsetID)
	}
	s.subsets = append(s.subsets, sub.id)
	s.subsetsMap[sub.traits.Key()] = sub.id
}

// addParent records that the given node consumes the set. Adjacent repeats,
// which occur when a node has several inputs from the same set, are elided.
func (s *Set) addParent(id NodeID) {
	if n := len(s.parents); n > 0 && s.parents[n-1] == id {
		return
	}
	s.parents = append(s.parents, id)
}

// Subset is the partition of a set by required traits. It tracks the lowest
// cost node of the set whose traits satisfy the subset's traits. The best
// cost never increases.
type Subset struct {
	id     SubsetID
	set    SetID
	traits physical.TraitSet

	// forward is non-zero once the subset has been absorbed by the subset of
	// the surviving set with the same traits.
	forward SubsetID

	best     NodeID
	bestCost Cost
}

// ID returns the identifier of the subset.
func (s *Subset) ID() SubsetID {
	return s.id
}

// Set returns the identifier of the set owning the subset. It is current for
// canonical subsets.
func (s *Subset) Set() SetID {
	return s.set
}

// Traits returns the traits required by the subset.
func (s *Subset) Traits() physical.TraitSet {
	return s.traits
}

// Best returns the lowest cost node found for the subset, or 0 if no node
// with a finite cost provides its traits yet. Use Memo.BestNode to resolve
// duplicates.
func (s *Subset) Best() NodeID {
	return s.best
}

// BestCost returns the cost of the best node, or MaxCost.
func (s *Subset) BestCost() Cost {
	return s.bestCost
}

// ratchet makes n the best node of the subset if it has a strictly lower cost
// than the current best. Ties keep the earlier node. It returns true if the
// best node changed.
func (s *Subset) ratchet(n *Node) bool {
	if n.cost.IsInfinite() || !n.traits.Satisfies(s.traits) {
		return false
	}
	if s.best == 0 || n.cost.Less(s.bestCost) {
		s.best = n.id
		s.bestCost = n.cost
		return true
	}
	return false
}
