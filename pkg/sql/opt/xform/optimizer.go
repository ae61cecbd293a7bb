// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/cockroachdb/volcano/pkg/util/log"
)

// Optimizer searches the space of plans equivalent to a root expression for
// the one with the lowest cost. It owns the memo, the rules, and the driver
// of a search; independent optimizers share no state.
//
// The optimizer is not safe for concurrent use. Rules run synchronously on the
// goroutine that called Optimize.
type Optimizer struct {
	mem     memo.Memo
	coster  memo.Coster
	cfg     Config
	metrics *Metrics

	rules     []Rule
	ruleNames map[string]struct{}

	// maxDepth is the depth of the deepest rule pattern. When a node is
	// produced, rules are matched at the node and at its ancestors up to
	// maxDepth-1 levels above it.
	maxDepth int

	// phaseRules records the rule names given to SetPhaseRules, so they can
	// be checked against the registered rules before the search starts.
	phaseRules map[Phase][]string

	newDriver func(o *Optimizer) RuleDriver
	driver    RuleDriver

	appliedRule AppliedRuleFunc

	stats Stats
}

// AppliedRuleFunc is called after a rule is applied to a binding, with the
// number of nodes the rule added to the memo.
type AppliedRuleFunc func(rule Rule, binding []memo.NodeID, added int)

// Stats reports the work done by an optimizer.
type Stats struct {
	RuleApplications int
	Timeouts         int
	PhasesCompleted  int
	StaleMatches     int
	Memo             memo.Stats
}

// Option configures an Optimizer.
type Option func(o *Optimizer)

// WithConfig sets the configuration of the search.
func WithConfig(cfg Config) Option {
	return func(o *Optimizer) {
		o.cfg = cfg
	}
}

// WithMetrics makes the optimizer count its work in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Optimizer) {
		o.metrics = m
	}
}

// WithDriver replaces the default IterativeRuleDriver.
func WithDriver(newDriver func(o *Optimizer) RuleDriver) Option {
	return func(o *Optimizer) {
		o.newDriver = newDriver
	}
}

// New returns an optimizer that uses coster to estimate local node costs.
func New(coster memo.Coster, opts ...Option) *Optimizer {
	o := &Optimizer{}
	o.Init(coster, opts...)
	return o
}

// Init initializes the optimizer, discarding any previous state. It allows an
// Optimizer to be embedded in another struct.
func (o *Optimizer) Init(coster memo.Coster, opts ...Option) {
	*o = Optimizer{
		coster:     coster,
		cfg:        DefaultConfig(),
		ruleNames:  make(map[string]struct{}),
		phaseRules: make(map[Phase][]string),
	}
	for _, fn := range opts {
		fn(o)
	}
	o.mem.Init(coster)
	if o.newDriver != nil {
		o.driver = o.newDriver(o)
	} else {
		o.driver = NewIterativeRuleDriver(o)
	}
	o.driver.RuleQueue().onStale = o.recordStale
	for p, names := range o.cfg.PhaseRules() {
		o.SetPhaseRules(p, names...)
	}
	o.mem.SetObserver(memoObserver{o: o})
}

// Memo returns the memo of the search.
func (o *Optimizer) Memo() *memo.Memo {
	return &o.mem
}

// Driver returns the driver of the search.
func (o *Optimizer) Driver() RuleDriver {
	return o.driver
}

// Config returns the configuration of the search.
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Rules returns the registered rules, in registration order.
func (o *Optimizer) Rules() []Rule {
	return o.rules
}

// AddRule registers a rule. If the memo already has nodes, the rule is
// matched against them.
func (o *Optimizer) AddRule(r Rule) error {
	if _, ok := o.ruleNames[r.Name()]; ok {
		return errors.Newf("rule %q is already registered", r.Name())
	}
	o.ruleNames[r.Name()] = struct{}{}
	o.rules = append(o.rules, r)
	if d := r.Pattern().Depth(); d > o.maxDepth {
		o.maxDepth = d
	}
	for _, s := range o.mem.Sets() {
		for _, n := range o.mem.Nodes(s) {
			o.matchRule(r, n)
		}
	}
	return nil
}

// SetPhaseRules enables exactly the named rules in the phase. By default every
// rule is enabled in the Optimize phase, and the other phases enable none.
func (o *Optimizer) SetPhaseRules(p Phase, names ...string) {
	o.phaseRules[p] = names
	o.driver.RuleQueue().SetPhaseRules(p, names)
}

// SetRoot registers the root expression of the query and returns the subset
// that must be implemented with the required traits.
func (o *Optimizer) SetRoot(e *memo.Expr, required physical.TraitSet) memo.SubsetID {
	return o.mem.SetRoot(e, required)
}

// Root returns the root subset, or nil if SetRoot has not been called.
func (o *Optimizer) Root() *memo.Subset {
	return o.mem.Root()
}

// NotifyOnAppliedRule sets a callback invoked after every successful rule
// application. Passing nil removes the callback.
func (o *Optimizer) NotifyOnAppliedRule(fn AppliedRuleFunc) {
	o.appliedRule = fn
}

// Clear discards the memo and all queued work, so that the optimizer can be
// used for another query. Rules and configuration are kept.
func (o *Optimizer) Clear() {
	o.driver.Clear()
	o.mem.Init(o.coster)
	o.mem.SetObserver(memoObserver{o: o})
	o.stats = Stats{}
}

// Stats returns counts of the work done since the last Clear.
func (o *Optimizer) Stats() Stats {
	s := o.stats
	s.StaleMatches = o.driver.RuleQueue().Stale()
	s.Memo = o.mem.Stats()
	return s
}

// Optimize runs the search and returns the best plan found for the root.
// Running out of budget is not an error: the best plan found so far is
// returned. An error is returned if the rules fail, or if no plan with the
// required traits was found; the latter is marked with opt.ErrNoPlan.
func (o *Optimizer) Optimize(ctx context.Context) (_ *Plan, err error) {
	defer opt.CatchOptimizerError(&err)

	if o.mem.Root() == nil {
		return nil, errors.AssertionFailedf("optimizer root is not set")
	}
	if err := o.checkPhaseRules(); err != nil {
		return nil, err
	}
	ctx = logtags.AddTag(ctx, "opt", nil)
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	log.VEventf(ctx, 1, "optimizing %d rules over %d nodes", len(o.rules), o.mem.NodeCount())
	if err := o.driver.Drive(ctx); err != nil {
		return nil, err
	}
	return o.extractPlan()
}

func (o *Optimizer) checkPhaseRules() error {
	for _, p := range Phases {
		for _, name := range o.phaseRules[p] {
			if _, ok := o.ruleNames[name]; !ok {
				return errors.Newf("phase %s enables unknown rule %q", p, name)
			}
		}
	}
	return nil
}

// checkCancel returns an error marked with opt.ErrTimeout if the context is
// done or the rule application budget is spent.
func (o *Optimizer) checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "optimizer search interrupted"), opt.ErrTimeout)
	}
	if limit := o.cfg.MaxRuleApplications; limit > 0 && o.stats.RuleApplications >= limit {
		return errors.Wrapf(opt.ErrTimeout, "applied %d rules", o.stats.RuleApplications)
	}
	return nil
}

// canonize merges the sets proven equivalent by the last rule application.
func (o *Optimizer) canonize() {
	before := o.mem.Merges()
	o.mem.Canonize()
	if n := o.mem.Merges() - before; n > 0 && o.metrics != nil {
		o.metrics.SetMerges.Add(float64(n))
	}
	if o.cfg.CheckInvariants {
		if err := o.mem.CheckInvariants(); err != nil {
			panic(err)
		}
	}
}

func (o *Optimizer) rootCost() memo.Cost {
	if root := o.mem.Root(); root != nil {
		return root.BestCost()
	}
	return memo.MaxCost
}

func (o *Optimizer) recordApplication(r Rule) {
	o.stats.RuleApplications++
	if o.metrics != nil {
		o.metrics.RuleApplications.WithLabelValues(r.Name()).Inc()
	}
}

func (o *Optimizer) recordPhaseCompleted(p Phase) {
	o.stats.PhasesCompleted++
	if o.metrics != nil {
		o.metrics.PhasesCompleted.WithLabelValues(p.String()).Inc()
	}
}

func (o *Optimizer) recordTimeout() {
	o.stats.Timeouts++
	if o.metrics != nil {
		o.metrics.Timeouts.Inc()
	}
}

func (o *Optimizer) recordStale() {
	if o.metrics != nil {
		o.metrics.StaleMatches.Inc()
	}
}

// fireRules queues the matches made possible by a new or re-homed node: those
// rooted at the node itself, and those rooted at its ancestors whose pattern
// reaches down to it.
func (o *Optimizer) fireRules(n *memo.Node) {
	if len(o.rules) == 0 || !n.IsLive() {
		return
	}
	for _, root := range o.ancestors(n, o.maxDepth-1) {
		for _, r := range o.rules {
			o.matchRule(r, root)
		}
	}
}

// ancestors returns n followed by the live nodes up to the given number of
// levels above it, nearest first.
func (o *Optimizer) ancestors(n *memo.Node, levels int) []*memo.Node {
	res := []*memo.Node{n}
	seen := map[memo.NodeID]struct{}{n.ID(): {}}
	frontier := res
	for ; levels > 0 && len(frontier) > 0; levels-- {
		var next []*memo.Node
		for _, c := range frontier {
			for _, p := range o.mem.Parents(o.mem.SetOf(c)) {
				if _, ok := seen[p.ID()]; !ok {
					seen[p.ID()] = struct{}{}
					next = append(next, p)
				}
			}
		}
		res = append(res, next...)
		frontier = next
	}
	return res
}

func (o *Optimizer) matchRule(r Rule, n *memo.Node) {
	q := o.driver.RuleQueue()
	r.Pattern().bind(&o.mem, n, nil, func(binding []memo.NodeID) {
		m := newRuleMatch(o, r, binding)
		if rm, ok := r.(RuleMatcher); ok && !rm.Matches(&RuleCall{ctx: context.Background(), o: o, match: m}) {
			return
		}
		q.AddMatch(m)
	})
}

// memoObserver turns memo notifications into rule matches and forwards them
// to the driver.
type memoObserver struct {
	o *Optimizer
}

func (mo memoObserver) OnProduce(n *memo.Node, s *memo.Subset) {
	mo.o.fireRules(n)
	mo.o.driver.OnProduce(n, s)
}

func (mo memoObserver) OnSetMerged(s *memo.Set) {
	for _, n := range mo.o.mem.Nodes(s) {
		mo.o.fireRules(n)
	}
	mo.o.driver.OnSetMerged(s)
}
