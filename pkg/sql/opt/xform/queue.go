// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"math"

	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/google/btree"
)

// DefaultImportanceDecay is the factor by which importance shrinks from a set
// to the sets of its inputs.
const DefaultImportanceDecay = 0.9

// queueEntry is a match waiting in the queue. An entry is indexed in the tree
// of every phase in its mask.
type queueEntry struct {
	match    *RuleMatch
	priority float64
	phases   phaseMask
}

func entryLess(a, b *queueEntry) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.match.seq < b.match.seq
}

// RuleQueue holds the matches that have not been applied yet, ordered by
// priority. A match is eligible in every phase whose rule set contains its
// rule, and is applied at most once.
//
// The priority of a match is the importance of the set holding the bound root
// node, scaled by the rule's weight. The root set has importance 1. Every
// input set of a live node in a set S receives
//
//	importance(S) * decay * min(1, cost(input) / cost(S))
//
// and keeps the largest value offered by any of its consumers. The cost of a
// set is the lowest best cost among its subsets; the ratio is 1 when either
// cost is infinite or zero. Sets that cannot be reached from the root have
// importance 0. Matches with equal priority are ordered by the time they were
// queued.
type RuleQueue struct {
	mem   *memo.Memo
	decay float64

	trees      [numPhases]*btree.BTreeG[*queueEntry]
	phaseRules [numPhases]ruleSet
	completed  phaseMask

	// digests holds the digest of every match ever queued since the last
	// Clear, so that a binding is applied at most once.
	digests map[string]struct{}

	importance map[memo.SetID]float64
	generation uint64
	seq        uint64

	// stale counts matches that were dropped at pop time because the memo
	// had invalidated them.
	stale   int
	onStale func()
}

// Init prepares the queue for the given memo. Until SetPhaseRules is called,
// every rule is enabled in the Optimize phase and no rule is enabled in the
// others.
func (q *RuleQueue) Init(mem *memo.Memo, decay float64) {
	*q = RuleQueue{mem: mem, decay: decay}
	if q.decay <= 0 || q.decay > 1 {
		q.decay = DefaultImportanceDecay
	}
	for _, p := range Phases {
		q.phaseRules[p] = makeRuleSet(nil)
	}
	q.phaseRules[Optimize].all = true
	q.Clear()
}

// SetPhaseRules replaces the set of rules enabled in the phase.
func (q *RuleQueue) SetPhaseRules(p Phase, names []string) {
	q.phaseRules[p] = makeRuleSet(names)
}

// PhaseRules reports whether the named rule is enabled in the phase.
func (q *RuleQueue) PhaseRules(p Phase, name string) bool {
	return q.phaseRules[p].contains(name)
}

// Clear drops every queued match and forgets which matches were queued and
// which phases were completed.
func (q *RuleQueue) Clear() {
	for i := range q.trees {
		q.trees[i] = btree.NewG[*queueEntry](32, entryLess)
	}
	q.completed = 0
	q.digests = make(map[string]struct{})
	q.importance = nil
	q.generation = 0
	q.seq = 0
	q.stale = 0
}

// Len returns the number of queued matches.
func (q *RuleQueue) Len() int {
	seen := make(map[*queueEntry]struct{})
	for _, t := range q.trees {
		t.Ascend(func(e *queueEntry) bool {
			seen[e] = struct{}{}
			return true
		})
	}
	return len(seen)
}

// PhaseLen returns the number of matches eligible in the phase.
func (q *RuleQueue) PhaseLen(p Phase) int {
	return q.trees[p].Len()
}

// Stale returns the number of matches dropped because they went stale.
func (q *RuleQueue) Stale() int {
	return q.stale
}

// IsCompleted returns true if PhaseCompleted was called for the phase.
func (q *RuleQueue) IsCompleted(p Phase) bool {
	return q.completed.contains(p)
}

// AddMatch queues the match. It returns false if the match was queued before,
// or if no remaining phase enables its rule.
func (q *RuleQueue) AddMatch(m *RuleMatch) bool {
	if _, ok := q.digests[m.digest]; ok {
		return false
	}
	var mask phaseMask
	for _, p := range Phases {
		if !q.completed.contains(p) && q.phaseRules[p].contains(m.rule.Name()) {
			mask = mask.add(p)
		}
	}
	if mask == 0 {
		return false
	}
	q.digests[m.digest] = struct{}{}
	q.seq++
	m.seq = q.seq
	e := &queueEntry{match: m, phases: mask, priority: q.priority(m)}
	for _, p := range Phases {
		if mask.contains(p) {
			q.trees[p].ReplaceOrInsert(e)
		}
	}
	return true
}

// PopMatch removes and returns the highest priority match eligible in the
// phase, or nil if there is none. Matches invalidated by merges are dropped.
// A completed phase has no eligible matches.
func (q *RuleQueue) PopMatch(p Phase) *RuleMatch {
	if q.completed.contains(p) {
		return nil
	}
	if q.generation != q.mem.Generation() {
		q.reprioritize()
	}
	for {
		e, ok := q.trees[p].DeleteMin()
		if !ok {
			return nil
		}
		q.remove(e, p)
		if !e.match.Matches() {
			q.stale++
			if q.onStale != nil {
				q.onStale()
			}
			continue
		}
		return e.match
	}
}

// PhaseCompleted marks the phase as done. Matches that are not eligible in
// any later phase are dropped, and priorities are recomputed.
func (q *RuleQueue) PhaseCompleted(p Phase) {
	q.completed = q.completed.add(p)
	q.trees[p].Ascend(func(e *queueEntry) bool {
		e.phases = e.phases.remove(p)
		return true
	})
	q.trees[p].Clear(false)
	q.reprioritize()
}

// remove deletes the entry from the trees of every phase other than p.
func (q *RuleQueue) remove(e *queueEntry, p Phase) {
	for _, other := range Phases {
		if other != p && e.phases.contains(other) {
			q.trees[other].Delete(e)
		}
	}
	e.phases = 0
}

// reprioritize recomputes importance and re-sorts every queued match.
func (q *RuleQueue) reprioritize() {
	q.computeImportance()
	var entries []*queueEntry
	seen := make(map[*queueEntry]struct{})
	for _, t := range q.trees {
		t.Ascend(func(e *queueEntry) bool {
			if _, ok := seen[e]; !ok {
				seen[e] = struct{}{}
				entries = append(entries, e)
			}
			return true
		})
		t.Clear(false)
	}
	for _, e := range entries {
		e.priority = q.priority(e.match)
		for _, p := range Phases {
			if e.phases.contains(p) {
				q.trees[p].ReplaceOrInsert(e)
			}
		}
	}
}

func (q *RuleQueue) priority(m *RuleMatch) float64 {
	set := q.mem.SetOf(q.mem.Node(m.binding[0])).ID()
	return q.importance[set] * ruleWeight(m.rule)
}

// Importance returns the importance of the set, as of the last time
// priorities were computed.
func (q *RuleQueue) Importance(id memo.SetID) float64 {
	return q.importance[q.mem.Set(id).ID()]
}

// computeImportance assigns an importance to every set reachable from the
// root by relaxing the best value offered along each input edge until no value
// grows. Each step scales by at most decay, so values along a cycle shrink and
// the iteration terminates.
func (q *RuleQueue) computeImportance() {
	q.generation = q.mem.Generation()
	q.importance = make(map[memo.SetID]float64)
	root := q.mem.Root()
	if root == nil {
		return
	}
	rootSet := q.mem.Set(root.Set())
	q.importance[rootSet.ID()] = 1
	work := []*memo.Set{rootSet}
	for len(work) > 0 {
		s := work[0]
		work = work[1:]
		imp := q.importance[s.ID()]
		cost := q.setCost(s)
		for _, n := range q.mem.Nodes(s) {
			for i := 0; i < n.InputCount(); i++ {
				in := q.mem.Set(q.mem.InputSubset(n, i).Set())
				v := imp * q.decay * costRatio(q.setCost(in), cost)
				if v > q.importance[in.ID()] {
					q.importance[in.ID()] = v
					work = append(work, in)
				}
			}
		}
	}
}

// setCost returns the lowest best cost among the subsets of the set.
func (q *RuleQueue) setCost(s *memo.Set) memo.Cost {
	c := memo.MaxCost
	for _, sub := range q.mem.Subsets(s) {
		if sub.BestCost().Less(c) {
			c = sub.BestCost()
		}
	}
	return c
}

func costRatio(child, parent memo.Cost) float64 {
	if child.IsInfinite() || parent.IsInfinite() || child.C == 0 || parent.C == 0 {
		return 1
	}
	return math.Min(1, child.C/parent.C)
}
