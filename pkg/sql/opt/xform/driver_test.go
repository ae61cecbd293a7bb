// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/cockroachdb/volcano/pkg/util/leaktest"
	"github.com/cockroachdb/volcano/pkg/util/log"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDriveNoRules(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	o := newTestOptimizer(t, rowsCoster{"a": 100})
	o.SetRoot(phys("table-scan", "a"), physical.Physical)
	before := o.Root().BestCost()

	require.NoError(t, o.Driver().Drive(context.Background()))

	q := o.Driver().RuleQueue()
	for _, p := range Phases {
		require.True(t, q.IsCompleted(p), "phase %s", p)
	}
	st := o.Stats()
	require.Equal(t, 0, st.RuleApplications)
	require.Equal(t, len(Phases), st.PhasesCompleted)
	require.Equal(t, before, o.Root().BestCost())
	require.Equal(t, memo.Cost{C: 100}, o.Root().BestCost())
}

func TestDriveJoinCommute(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	o := newTestOptimizer(t, rowsCoster{"a": 1000, "b": 10}, joinCommute(), implementScan(), implementJoin())
	// The larger relation starts out on the build side.
	o.SetRoot(joinQuery("b", "a"), physical.Physical)

	plan, err := o.Optimize(context.Background())
	require.NoError(t, err)

	expected := &Plan{
		Op:     testOp{name: "hash-join"},
		Traits: physical.Physical,
		Cost:   memo.Cost{C: 2030},
		Inputs: []*Plan{
			{Op: testOp{name: "table-scan", arg: "a"}, Traits: physical.Physical, Cost: memo.Cost{C: 1000}},
			{Op: testOp{name: "table-scan", arg: "b"}, Traits: physical.Physical, Cost: memo.Cost{C: 10}},
		},
	}
	if diff := cmp.Diff(expected, plan, cmp.AllowUnexported(testOp{})); diff != "" {
		t.Fatalf("unexpected plan (-want +got):\n%s", diff)
	}

	// Both join orders live in the root set.
	m := o.Memo()
	var joins []string
	for _, n := range m.Nodes(m.Set(o.Root().Set())) {
		if n.Op().Name() == "join" {
			var inputs []string
			for i := 0; i < n.InputCount(); i++ {
				inputs = append(inputs, rowsName(m, m.InputSubset(n, i).Set()))
			}
			joins = append(joins, inputs[0]+inputs[1])
		}
	}
	require.ElementsMatch(t, []string{"ba", "ab"}, joins)
	require.NoError(t, m.CheckInvariants())
}

func rowsName(m *memo.Memo, id memo.SetID) string {
	for _, n := range m.Nodes(m.Set(id)) {
		if n.Op().Name() == "scan" {
			return n.Op().(testOp).arg
		}
	}
	return "?"
}

func TestDriveTimeoutStopsSearch(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	var pre, cleanup, applied int
	timeoutOnThird := func(r *testRule) *testRule {
		inner := r.onMatch
		r.onMatch = func(c *RuleCall) error {
			applied++
			if applied == 3 {
				return errors.Wrap(opt.ErrTimeout, "injected")
			}
			return inner(c)
		}
		return r
	}
	o := newTestOptimizer(t, rowsCoster{"a": 1000, "b": 10},
		countingRule("Mark", "scan", &pre),
		timeoutOnThird(implementScan()),
		timeoutOnThird(implementJoin()),
		countingRule("Cleanup", "", &cleanup),
	)
	o.SetPhaseRules(PreProcess, "Mark")
	o.SetPhaseRules(Optimize, "ImplementScan", "ImplementJoin")
	o.SetPhaseRules(Cleanup, "Cleanup")
	o.SetRoot(joinQuery("a", "b"), physical.Physical)

	require.NoError(t, o.Driver().Drive(context.Background()))

	q := o.Driver().RuleQueue()
	require.Equal(t, 2, pre)
	require.Equal(t, 3, applied)
	require.Equal(t, 0, cleanup)
	require.True(t, q.IsCompleted(PreProcess))
	require.True(t, q.IsCompleted(Optimize))
	require.False(t, q.IsCompleted(Cleanup))
	require.Nil(t, q.PopMatch(Optimize))

	st := o.Stats()
	require.Equal(t, 1, st.Timeouts)
	require.Equal(t, 5, st.RuleApplications)

	// The root is still a canonical subset of a consistent memo.
	m := o.Memo()
	require.NotNil(t, o.Root())
	require.False(t, m.HasPendingEquivalences())
	require.NoError(t, m.CheckInvariants())
}

func TestDriveRootCostNonIncreasing(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	var costs []memo.Cost
	var o *Optimizer
	record := func(r *testRule) *testRule {
		inner := r.onMatch
		r.onMatch = func(c *RuleCall) error {
			costs = append(costs, o.rootCost())
			return inner(c)
		}
		return r
	}
	o = newTestOptimizer(t, rowsCoster{"a": 1000, "b": 10, "c": 100},
		record(joinCommute()), record(implementScan()), record(implementJoin()))
	o.SetRoot(
		logical("join", "", joinQuery("a", "b"), logical("scan", "c")),
		physical.Physical,
	)
	_, err := o.Optimize(context.Background())
	require.NoError(t, err)
	costs = append(costs, o.rootCost())

	require.Greater(t, len(costs), 5)
	for i := 1; i < len(costs); i++ {
		require.False(t, costs[i-1].Less(costs[i]), "root cost rose from %s to %s", costs[i-1], costs[i])
	}
	require.False(t, costs[len(costs)-1].IsInfinite())
}

func TestDriveDeterministic(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	run := func() (string, string) {
		o := newTestOptimizer(t, rowsCoster{"a": 1000, "b": 10, "c": 100},
			joinCommute(), implementScan(), implementJoin())
		o.SetRoot(logical("join", "", joinQuery("a", "b"), logical("scan", "c")), physical.Physical)
		plan, err := o.Optimize(context.Background())
		require.NoError(t, err)
		return plan.String(), o.Memo().String()
	}
	plan1, memo1 := run()
	plan2, memo2 := run()
	require.Equal(t, plan1, plan2)
	require.Equal(t, memo1, memo2)
}

func TestDriveRuleError(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	boom := errors.New("boom")
	var cleanup int
	o := newTestOptimizer(t, rowsCoster{"a": 10},
		&testRule{name: "Fail", pattern: &Pattern{Op: "scan"}, onMatch: func(*RuleCall) error {
			return errors.Wrap(boom, "applying rule")
		}},
		countingRule("Cleanup", "", &cleanup),
	)
	o.SetPhaseRules(Optimize, "Fail")
	o.SetPhaseRules(Cleanup, "Cleanup")
	o.SetRoot(logical("scan", "a"), physical.Physical)

	_, err := o.Optimize(context.Background())
	require.True(t, errors.Is(err, boom), "%+v", err)
	require.False(t, opt.IsTimeout(err))
	require.False(t, errors.IsAssertionFailure(err))
	require.Equal(t, 0, cleanup)
	require.False(t, o.Driver().RuleQueue().IsCompleted(Optimize))
}

// flakyRule accepts its binding when it is queued and popped, and rejects it
// when the driver checks it again.
type flakyRule struct {
	*testRule
	calls int
}

func (r *flakyRule) Matches(*RuleCall) bool {
	r.calls++
	return r.calls < 3
}

func TestDriveRemoveRedundantOperator(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	removeFilter := &testRule{
		name:    "RemoveFilter",
		pattern: &Pattern{Op: "filter"},
		onMatch: func(c *RuleCall) error {
			c.Transform(c.Input(0))
			return nil
		},
	}
	o := newTestOptimizer(t, rowsCoster{"a": 10}, removeFilter, implementScan())
	o.SetRoot(logical("filter", "true", logical("scan", "a")), physical.Physical)
	m := o.Memo()
	require.Equal(t, memo.SetID(2), o.Root().Set())

	plan, err := o.Optimize(context.Background())
	require.NoError(t, err)
	require.Equal(t, "table-scan a physical (cost=10)\n", plan.String())

	// The filter set folds into the scan set, which survives as the lower ID,
	// and the root follows it.
	require.Equal(t, 1, m.Merges())
	require.Len(t, m.Sets(), 1)
	require.Equal(t, memo.SetID(1), o.Root().Set())
	require.True(t, o.Root().Traits().Equals(physical.Physical))
	var ops []string
	for _, n := range m.Nodes(m.Set(1)) {
		ops = append(ops, n.Op().Name())
	}
	require.ElementsMatch(t, []string{"scan", "filter", "table-scan"}, ops)
	require.NoError(t, m.CheckInvariants())
}

func TestDriveStaleMatchIsFatal(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	o := newTestOptimizer(t, rowsCoster{"a": 10})
	require.NoError(t, o.AddRule(&flakyRule{testRule: implementScan()}))
	o.SetRoot(logical("scan", "a"), physical.Physical)

	_, err := o.Optimize(context.Background())
	require.Error(t, err)
	require.True(t, errors.IsAssertionFailure(err), "%+v", err)
	require.Contains(t, err.Error(), "popped stale match ImplementScan/[1]")
}

func TestOptimizeCanceled(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	o := newTestOptimizer(t, rowsCoster{"a": 10}, implementScan())
	o.SetRoot(logical("scan", "a"), physical.Physical)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Optimize(ctx)
	require.True(t, errors.Is(err, opt.ErrNoPlan), "%+v", err)
	require.Contains(t, err.Error(), "memo (1 sets")

	st := o.Stats()
	require.Equal(t, 1, st.Timeouts)
	require.Equal(t, 0, st.RuleApplications)
	require.True(t, o.Driver().RuleQueue().IsCompleted(Optimize))
	require.False(t, o.Driver().RuleQueue().IsCompleted(Cleanup))
}

func TestOptimizeMaxRuleApplications(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	cfg := DefaultConfig()
	cfg.MaxRuleApplications = 2
	o := New(rowsCoster{"a": 1000, "b": 10}, WithConfig(cfg))
	for _, r := range []Rule{joinCommute(), implementScan(), implementJoin()} {
		require.NoError(t, o.AddRule(r))
	}
	o.SetRoot(joinQuery("b", "a"), physical.Physical)

	_, err := o.Optimize(context.Background())
	require.True(t, errors.Is(err, opt.ErrNoPlan), "%+v", err)
	st := o.Stats()
	require.Equal(t, 2, st.RuleApplications)
	require.Equal(t, 1, st.Timeouts)
}
