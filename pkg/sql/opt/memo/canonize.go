// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

// Canonize folds together every pair of sets proven equivalent since the last
// call, repairs the references affected by the merges, and re-homes the root
// subset. Merging can make parent nodes identical to each other, which proves
// further equivalences; Canonize keeps merging until none remain. With no
// pending equivalences it leaves the memo unchanged.
func (m *Memo) Canonize() {
	for len(m.pending) > 0 {
		eq := m.pending[0]
		m.pending = m.pending[1:]
		a, b := m.find(eq[0]), m.find(eq[1])
		if a == b {
			continue
		}
		// The older set survives, which keeps merges deterministic.
		if b < a {
			a, b = b, a
		}
		m.merge(m.sets[a], m.sets[b])
	}
	m.pending = nil
	if m.root != 0 {
		m.root = m.Subset(m.root).id
	}
}

// merge folds the absorbed set into the survivor. All nodes move to the
// survivor. Each subset of the absorbed set either moves to the survivor or,
// if the survivor already has a subset with the same traits, forwards to it;
// in that case the survivor subset keeps the lower of the two best costs.
// Nodes that consume the absorbed set are re-interned, since their canonical
// inputs may have changed.
func (m *Memo) merge(survivor, absorbed *Set) {
	absorbed.mergedInto = survivor.id
	m.merges++
	m.generation++

	for _, id := range absorbed.nodes {
		m.nodes[id].set = survivor.id
	}
	survivor.nodes = append(survivor.nodes, absorbed.nodes...)
	absorbed.nodes = nil

	for _, id := range absorbed.subsets {
		sub := m.subsets[id]
		if target := survivor.lookupSubset(sub.traits); target != 0 {
			t := m.subsets[target]
			sub.forward = t.id
			if sub.best != 0 && (t.best == 0 || sub.bestCost.Less(t.bestCost)) {
				t.best = sub.best
				t.bestCost = sub.bestCost
			}
			continue
		}
		sub.set = survivor.id
		survivor.addSubset(sub)
	}
	absorbed.subsets = nil
	absorbed.subsetsMap = nil

	// Nodes from either side may satisfy the traits of subsets that came from
	// the other side.
	for _, id := range survivor.subsets {
		sub := m.subsets[id]
		for _, n := range m.Nodes(survivor) {
			sub.ratchet(n)
		}
	}

	consumers := absorbed.parents
	absorbed.parents = nil
	seen := make(map[NodeID]struct{}, len(survivor.parents))
	for _, id := range survivor.parents {
		seen[id] = struct{}{}
	}
	for _, id := range consumers {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			survivor.parents = append(survivor.parents, id)
		}
	}
	for _, id := range consumers {
		m.reintern(m.nodes[id])
	}

	// Any subset of the survivor may now have a better node than its
	// consumers were costed with.
	m.propagate(m.Subsets(survivor))

	if m.observer != nil {
		m.observer.OnSetMerged(survivor)
	}
}

// reintern recomputes the interning key of n. If n is now identical to
// another live node, the one registered later becomes a duplicate of the
// other, and their sets are recorded as equivalent.
func (m *Memo) reintern(n *Node) {
	if !n.IsLive() {
		return
	}
	m.removeDigest(n)
	n.hash = m.hashNode(n.op, n.traits, n.inputs)
	other := m.lookupNode(n.hash, n.op, n.traits, n.inputs)
	if other == nil {
		m.digests[n.hash] = append(m.digests[n.hash], n.id)
		return
	}
	keep, dup := other, n
	if n.id < other.id {
		keep, dup = n, other
		m.removeDigest(other)
		m.digests[n.hash] = append(m.digests[n.hash], n.id)
	}
	dup.dup = keep.id
	m.generation++
	m.addEquivalence(keep.set, dup.set)
}
