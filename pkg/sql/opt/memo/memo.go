// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package memo implements the equivalence memo of the plan search: a compact
// representation of every plan discovered so far, grouped by logical and
// physical equivalence.
//
// The memo is composed of numbered equivalence sets. Each set contains the
// candidate nodes that have been proven to produce the same logical result. A
// node refers to its inputs by subset rather than by node, so the memo
// represents every combination of a parent node with the alternatives of its
// inputs. A set is partitioned into subsets by the physical traits that
// consumers require of it, and each subset remembers its lowest cost node.
//
// For example, after registering a join of two scans and applying join
// commutativity, the memo contains:
//
//	S3: [join S1 S2] [join S2 S1]
//	S2: [scan b]
//	S1: [scan a]
//
// When a rule registers a node that is identical to a node already in another
// set, the two sets are proven equivalent. The memo records the equivalence
// and folds the sets together during Canonize. Sets and subsets are addressed
// by integer handles; an absorbed set or subset keeps its handle, which the
// memo redirects to the survivor, so structures that still hold an old handle
// never dangle.
package memo

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
)

// Coster computes the local cost of a node, excluding the cost of its inputs.
// It is supplied by the cost model. Returning MaxCost marks the node as not
// implementable (e.g. a logical operator).
type Coster interface {
	ComputeCost(m *Memo, n *Node) Cost
}

// CosterFunc adapts a function to the Coster interface.
type CosterFunc func(m *Memo, n *Node) Cost

// ComputeCost implements the Coster interface.
func (f CosterFunc) ComputeCost(m *Memo, n *Node) Cost {
	return f(m, n)
}

// Observer is notified by the memo when it changes structurally. Both methods
// are called once the memo is consistent again.
type Observer interface {
	// OnProduce is called when a new node is registered, with the subset whose
	// traits exactly match the node's traits.
	OnProduce(n *Node, s *Subset)

	// OnSetMerged is called after another set has been folded into s.
	OnSetMerged(s *Set)
}

// Memo is a data structure for efficiently storing a forest of equivalent
// query plans. See the package comment for more details.
type Memo struct {
	coster   Coster
	observer Observer

	// nodes, sets and subsets are indexed by ID; entry 0 is unused.
	nodes   []*Node
	sets    []*Set
	subsets []*Subset

	nodeAlloc   pageAlloc[Node]
	setAlloc    pageAlloc[Set]
	subsetAlloc pageAlloc[Subset]

	// digests interns nodes by the hash of their operator digest, traits and
	// canonical inputs. Buckets hold every live node with that hash.
	digests map[uint64][]NodeID

	// pending holds pairs of sets proven equivalent that Canonize has not
	// merged yet.
	pending [][2]SetID

	root SubsetID

	// generation is incremented on every change that can affect the shape of
	// the memo or the best cost of a subset.
	generation uint64

	merges int
}

// Init prepares the memo for use, discarding any previous state.
func (m *Memo) Init(coster Coster) {
	*m = Memo{
		coster:  coster,
		nodes:   make([]*Node, 1),
		sets:    make([]*Set, 1),
		subsets: make([]*Subset, 1),
		digests: make(map[uint64][]NodeID),
	}
}

// SetObserver installs the observer notified of memo changes.
func (m *Memo) SetObserver(o Observer) {
	m.observer = o
}

// IsEmpty returns true if no node has been registered.
func (m *Memo) IsEmpty() bool {
	return len(m.nodes) <= 1
}

// Generation returns a counter that changes whenever the memo changes in a
// way that can affect the shape of the plan graph or a best cost.
func (m *Memo) Generation() uint64 {
	return m.generation
}

// Merges returns the number of set merges performed so far.
func (m *Memo) Merges() int {
	return m.merges
}

// NodeCount returns the number of nodes ever registered, including nodes that
// later turned out to be duplicates.
func (m *Memo) NodeCount() int {
	return len(m.nodes) - 1
}

// Node returns the node with the given ID.
func (m *Memo) Node(id NodeID) *Node {
	return m.nodes[id]
}

// canonicalNode follows duplicate links to the live node equal to id.
func (m *Memo) canonicalNode(id NodeID) *Node {
	n := m.nodes[id]
	for n.dup != 0 {
		n = m.nodes[n.dup]
	}
	return n
}

// Set returns the live set that the given set ID resolves to.
func (m *Memo) Set(id SetID) *Set {
	return m.sets[m.find(id)]
}

func (m *Memo) find(id SetID) SetID {
	for m.sets[id].mergedInto != 0 {
		id = m.sets[id].mergedInto
	}
	return id
}

// Subset returns the canonical subset that the given subset ID resolves to.
func (m *Memo) Subset(id SubsetID) *Subset {
	s := m.subsets[id]
	for s.forward != 0 {
		s = m.subsets[s.forward]
	}
	return s
}

// SetOf returns the live set containing the given node.
func (m *Memo) SetOf(n *Node) *Set {
	return m.Set(n.set)
}

// InputSubset returns the canonical subset supplying the i-th input of n.
func (m *Memo) InputSubset(n *Node, i int) *Subset {
	return m.Subset(n.inputs[i])
}

// BestNode returns the best node of the subset, or nil if it has none.
func (m *Memo) BestNode(s *Subset) *Node {
	if s.best == 0 {
		return nil
	}
	return m.canonicalNode(s.best)
}

// Nodes returns the live nodes of the set, in registration order of the set.
func (m *Memo) Nodes(s *Set) []*Node {
	res := make([]*Node, 0, len(s.nodes))
	for _, id := range s.nodes {
		if n := m.nodes[id]; n.IsLive() {
			res = append(res, n)
		}
	}
	return res
}

// Subsets returns the canonical subsets of the set, in creation order.
func (m *Memo) Subsets(s *Set) []*Subset {
	res := make([]*Subset, len(s.subsets))
	for i, id := range s.subsets {
		res[i] = m.subsets[id]
	}
	return res
}

// Parents returns the live nodes that consume the set.
func (m *Memo) Parents(s *Set) []*Node {
	res := make([]*Node, 0, len(s.parents))
	for _, id := range s.parents {
		if n := m.nodes[id]; n.IsLive() {
			res = append(res, n)
		}
	}
	return res
}

// SubsetNodes returns the live nodes of the subset's set whose traits satisfy
// the subset's traits. These are the alternatives a consumer of the subset
// may choose from.
func (m *Memo) SubsetNodes(s *Subset) []*Node {
	var res []*Node
	for _, n := range m.Nodes(m.Set(s.set)) {
		if n.traits.Satisfies(s.traits) {
			res = append(res, n)
		}
	}
	return res
}

// Sets returns the live sets in ID order.
func (m *Memo) Sets() []*Set {
	var res []*Set
	for _, s := range m.sets[1:] {
		if s.mergedInto == 0 {
			res = append(res, s)
		}
	}
	return res
}

// SetRoot registers the expression and makes the subset of its set with the
// required traits the root of the search.
func (m *Memo) SetRoot(e *Expr, required physical.TraitSet) SubsetID {
	var set SetID
	if e.IsRef() {
		set = m.Subset(e.Subset).set
	} else {
		set = m.Node(m.Register(e, 0)).set
	}
	m.root = m.RequireSubset(set, required)
	return m.root
}

// Root returns the canonical root subset, or nil if no root is set.
func (m *Memo) Root() *Subset {
	if m.root == 0 {
		return nil
	}
	return m.Subset(m.root)
}

// Register adds the expression tree to the memo and returns the ID of the node
// for its top operator. New nodes of the inner operators are placed in fresh
// sets, unless they already exist in the memo. If equiv is non-zero, the top
// operator is known to be equivalent to the set equiv: a new node joins that
// set, while an existing node in another set proves the two sets equivalent.
// The equivalence is recorded, and the sets are merged by the next call to
// Canonize.
//
// The top of e may be a reference to an existing subset only when equiv is
// non-zero. That records the equivalence of equiv with the subset's set, and
// returns the subset's best node, or the first node of its set if the subset
// has no best node yet.
func (m *Memo) Register(e *Expr, equiv SetID) NodeID {
	if e.IsRef() {
		if equiv == 0 {
			panic(errors.AssertionFailedf("cannot register a reference to subset %d", e.Subset))
		}
		return m.registerEquivalent(m.Subset(e.Subset), equiv)
	}
	if e.Op == nil {
		panic(errors.AssertionFailedf("cannot register an expression without an operator"))
	}
	inputs := make([]SubsetID, len(e.Inputs))
	for i, in := range e.Inputs {
		inputs[i] = m.registerInput(in)
	}
	return m.registerNode(e.Op, e.Traits, inputs, equiv)
}

func (m *Memo) registerEquivalent(sub *Subset, equiv SetID) NodeID {
	m.addEquivalence(equiv, sub.set)
	if n := m.BestNode(sub); n != nil {
		return n.id
	}
	return m.Nodes(m.Set(sub.set))[0].id
}

func (m *Memo) registerInput(e *Expr) SubsetID {
	if e.IsRef() {
		return m.Subset(e.Subset).id
	}
	n := m.nodes[m.Register(e, 0)]
	return m.RequireSubset(n.set, n.traits)
}

func (m *Memo) registerNode(
	op opt.Operator, traits physical.TraitSet, inputs []SubsetID, equiv SetID,
) NodeID {
	h := m.hashNode(op, traits, inputs)
	if existing := m.lookupNode(h, op, traits, inputs); existing != nil {
		if equiv != 0 {
			m.addEquivalence(equiv, existing.set)
		}
		return existing.id
	}

	n := m.nodeAlloc.allocate()
	*n = Node{
		id:     NodeID(len(m.nodes)),
		op:     op,
		traits: traits,
		inputs: inputs,
		hash:   h,
	}
	m.nodes = append(m.nodes, n)
	m.digests[h] = append(m.digests[h], n.id)

	var set *Set
	if equiv == 0 {
		set = m.newSet()
	} else {
		set = m.Set(equiv)
	}
	n.set = set.id
	set.nodes = append(set.nodes, n.id)
	for _, in := range inputs {
		m.Set(m.Subset(in).set).addParent(n.id)
	}
	m.generation++

	n.cost = m.computeCost(n)
	sub := m.subsets[m.RequireSubset(set.id, traits)]
	m.propagate(m.ratchetSubsets(set, n))

	if m.observer != nil {
		m.observer.OnProduce(n, sub)
	}
	return n.id
}

// RequireSubset returns the subset of the set with the given traits, creating
// it if needed. A new subset starts out with the best of the set's existing
// nodes that satisfy its traits.
func (m *Memo) RequireSubset(set SetID, traits physical.TraitSet) SubsetID {
	s := m.Set(set)
	if id := s.lookupSubset(traits); id != 0 {
		return id
	}
	sub := m.subsetAlloc.allocate()
	*sub = Subset{
		id:       SubsetID(len(m.subsets)),
		set:      s.id,
		traits:   traits,
		bestCost: MaxCost,
	}
	m.subsets = append(m.subsets, sub)
	s.addSubset(sub)
	for _, n := range m.Nodes(s) {
		sub.ratchet(n)
	}
	m.generation++
	return sub.id
}

func (m *Memo) newSet() *Set {
	s := m.setAlloc.allocate()
	*s = Set{id: SetID(len(m.sets))}
	m.sets = append(m.sets, s)
	return s
}

// addEquivalence records that the two sets are equivalent. It is a no-op if
// they are already the same set.
func (m *Memo) addEquivalence(a, b SetID) {
	a, b = m.find(a), m.find(b)
	if a != b {
		m.pending = append(m.pending, [2]SetID{a, b})
	}
}

// HasPendingEquivalences returns true if Canonize has work to do.
func (m *Memo) HasPendingEquivalences() bool {
	return len(m.pending) > 0
}

// computeCost returns the cumulative cost of n given the current best costs
// of its inputs.
func (m *Memo) computeCost(n *Node) Cost {
	if m.coster == nil {
		panic(errors.AssertionFailedf("memo has no coster"))
	}
	c := m.coster.ComputeCost(m, n)
	if c.IsInfinite() {
		return MaxCost
	}
	for _, in := range n.inputs {
		sub := m.Subset(in)
		if sub.best == 0 {
			return MaxCost
		}
		c.Add(sub.bestCost)
	}
	return c
}

// ratchetSubsets offers n to every subset of the set whose traits it
// satisfies and returns the subsets whose best node changed.
func (m *Memo) ratchetSubsets(s *Set, n *Node) []*Subset {
	var improved []*Subset
	for _, id := range s.subsets {
		sub := m.subsets[id]
		if sub.ratchet(n) {
			improved = append(improved, sub)
		}
	}
	if len(improved) > 0 {
		m.generation++
	}
	return improved
}

// propagate recomputes the cost of the consumers of improved subsets. Every
// consumer whose cost drops is offered to the subsets of its own set, and the
// process repeats until no cost improves. Costs only decrease, so this
// terminates.
func (m *Memo) propagate(work []*Subset) {
	for len(work) > 0 {
		sub := work[0]
		work = work[1:]
		for _, p := range m.Parents(m.Set(sub.set)) {
			if !m.consumes(p, sub) {
				continue
			}
			c := m.computeCost(p)
			if !c.Less(p.cost) {
				continue
			}
			p.cost = c
			work = append(work, m.ratchetSubsets(m.Set(p.set), p)...)
		}
	}
}

// consumes returns true if one of n's inputs resolves to sub.
func (m *Memo) consumes(n *Node, sub *Subset) bool {
	for _, in := range n.inputs {
		if m.Subset(in) == sub {
			return true
		}
	}
	return false
}

// hashNode computes the interning key of a node from its operator digest,
// traits and canonical input subsets.
func (m *Memo) hashNode(op opt.Operator, traits physical.TraitSet, inputs []SubsetID) uint64 {
	var buf [4]byte
	d := xxhash.New()
	_, _ = d.WriteString(op.Digest())
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(traits.Key())
	for _, in := range inputs {
		binary.LittleEndian.PutUint32(buf[:], uint32(m.Subset(in).id))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// lookupNode returns the live node interned under h that is identical to the
// described node, or nil.
func (m *Memo) lookupNode(
	h uint64, op opt.Operator, traits physical.TraitSet, inputs []SubsetID,
) *Node {
	for _, id := range m.digests[h] {
		n := m.nodes[id]
		if m.identical(n, op, traits, inputs) {
			return n
		}
	}
	return nil
}

func (m *Memo) identical(
	n *Node, op opt.Operator, traits physical.TraitSet, inputs []SubsetID,
) bool {
	if n.op.Digest() != op.Digest() || !n.traits.Equals(traits) || len(n.inputs) != len(inputs) {
		return false
	}
	for i := range inputs {
		if m.Subset(n.inputs[i]) != m.Subset(inputs[i]) {
			return false
		}
	}
	return true
}

func (m *Memo) removeDigest(n *Node) {
	bucket := m.digests[n.hash]
	for i, id := range bucket {
		if id == n.id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(m.digests, n.hash)
	} else {
		m.digests[n.hash] = bucket
	}
}
