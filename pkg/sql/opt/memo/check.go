// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import (
	"github.com/cockroachdb/errors"
)

// CheckInvariants verifies the internal consistency of the memo and returns an
// assertion failure describing the first violation found. It is expensive and
// is meant for tests and for optimizer runs with invariant checking enabled.
func (m *Memo) CheckInvariants() error {
	owner := make(map[NodeID]SetID, len(m.nodes))
	for _, s := range m.Sets() {
		for _, id := range s.nodes {
			if prev, ok := owner[id]; ok {
				return errors.AssertionFailedf("node %d listed in sets %d and %d", id, prev, s.id)
			}
			owner[id] = s.id
			if got := m.find(m.nodes[id].set); got != s.id {
				return errors.AssertionFailedf("node %d resolves to set %d, listed in set %d", id, got, s.id)
			}
		}
		for _, id := range s.subsets {
			sub := m.subsets[id]
			if sub.forward != 0 {
				return errors.AssertionFailedf("set %d owns forwarded subset %d", s.id, id)
			}
			if sub.set != s.id {
				return errors.AssertionFailedf("subset %d of set %d points to set %d", id, s.id, sub.set)
			}
			if s.subsetsMap[sub.traits.Key()] != id {
				return errors.AssertionFailedf("subset %d of set %d is not indexed by its traits", id, s.id)
			}
			if err := m.checkBest(s, sub); err != nil {
				return err
			}
		}
	}
	for id := 1; id < len(m.nodes); id++ {
		if _, ok := owner[NodeID(id)]; !ok {
			return errors.AssertionFailedf("node %d does not belong to a live set", id)
		}
	}
	for id := 1; id < len(m.subsets); id++ {
		sub := m.Subset(SubsetID(id))
		if m.sets[sub.set].mergedInto != 0 {
			return errors.AssertionFailedf("subset %d resolves to absorbed set %d", id, sub.set)
		}
	}
	if root := m.Root(); root != nil && root.id != m.root {
		return errors.AssertionFailedf("root subset %d is not canonical", m.root)
	}
	return nil
}

func (m *Memo) checkBest(s *Set, sub *Subset) error {
	best := m.BestNode(sub)
	for _, n := range m.Nodes(s) {
		if !n.traits.Satisfies(sub.traits) || n.cost.IsInfinite() {
			continue
		}
		if best == nil {
			return errors.AssertionFailedf("subset %d has no best but node %d has cost %s", sub.id, n.id, n.cost)
		}
		if n.cost.Less(sub.bestCost) {
			return errors.AssertionFailedf("subset %d best cost %s exceeds cost %s of node %d",
				sub.id, sub.bestCost, n.cost, n.id)
		}
	}
	if best != nil && !best.traits.Satisfies(sub.traits) {
		return errors.AssertionFailedf("best node %d of subset %d does not satisfy %s", best.id, sub.id, sub.traits)
	}
	return nil
}
