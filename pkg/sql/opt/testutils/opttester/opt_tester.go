// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package opttester runs optimizer tests written as datadriven files.
package opttester

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/relational"
	"github.com/cockroachdb/volcano/pkg/sql/opt/xform"
)

// OptTester is a helper for testing the optimizer. It builds a query written
// in the YAML query format, optimizes it with the relational rules, and
// formats the plan, the memo, or statistics about the rules that fired.
type OptTester struct {
	Flags OptTesterFlags

	query string

	// appliedRules counts applications per rule during the last run.
	appliedRules map[string]*ruleStats
}

// OptTesterFlags are control knobs for tests. Test cases can override them
// with command arguments.
type OptTesterFlags struct {
	// DisableRules is a set of rules that are not registered.
	DisableRules map[string]bool

	// ExpectedRules must all be applied for the test to pass.
	ExpectedRules []string

	// UnexpectedRules must not be applied for the test to pass.
	UnexpectedRules []string

	// MaxRuleApplications bounds the search. Zero means no bound.
	MaxRuleApplications int
}

type ruleStats struct {
	applied int
	added   int
}

// New constructs an OptTester for the given query.
func New(query string) *OptTester {
	return &OptTester{query: query}
}

// RunCommand implements commands that are used by most tests:
//
//   - opt: optimizes the query and prints the best plan.
//   - memo: optimizes the query and prints the memo.
//   - rulestats: optimizes the query and prints how often each rule fired.
//
// Supported arguments:
//
//   - disable=(rule1,rule2): leaves the rules out of the search.
//   - expect=(rule1,rule2): fails the test unless every rule fires.
//   - expect-not=(rule1,rule2): fails the test if any of the rules fires.
//   - max-rules=n: stops the search after n rule applications.
func (ot *OptTester) RunCommand(tb testing.TB, d *datadriven.TestData) string {
	for _, a := range d.CmdArgs {
		if err := ot.Flags.Set(a); err != nil {
			d.Fatalf(tb, "%s", err)
		}
	}

	var result string
	var err error
	switch d.Cmd {
	case "opt":
		var plan *xform.Plan
		plan, _, err = ot.Optimize()
		if err == nil {
			result = plan.String()
		}

	case "memo":
		result, err = ot.Memo()

	case "rulestats":
		result, err = ot.RuleStats()

	default:
		d.Fatalf(tb, "unsupported command: %s", d.Cmd)
		return ""
	}
	if err != nil {
		// Only the first line: errors may carry a memo dump.
		text := strings.SplitN(strings.TrimSpace(err.Error()), "\n", 2)[0]
		return fmt.Sprintf("error: %s\n", text)
	}
	ot.checkExpectedRules(tb, d)
	return result
}

// Set parses an argument that refers to a flag.
// See OptTester.RunCommand for supported flags.
func (f *OptTesterFlags) Set(arg datadriven.CmdArg) error {
	switch arg.Key {
	case "disable":
		if len(arg.Vals) == 0 {
			return errors.New("disable requires arguments")
		}
		if f.DisableRules == nil {
			f.DisableRules = make(map[string]bool)
		}
		for _, s := range arg.Vals {
			if err := checkRuleName(s); err != nil {
				return err
			}
			f.DisableRules[s] = true
		}

	case "expect":
		for _, s := range arg.Vals {
			if err := checkRuleName(s); err != nil {
				return err
			}
		}
		f.ExpectedRules = arg.Vals

	case "expect-not":
		for _, s := range arg.Vals {
			if err := checkRuleName(s); err != nil {
				return err
			}
		}
		f.UnexpectedRules = arg.Vals

	case "max-rules":
		if len(arg.Vals) != 1 {
			return errors.New("max-rules requires one argument")
		}
		n, err := strconv.Atoi(arg.Vals[0])
		if err != nil {
			return errors.Wrap(err, "max-rules")
		}
		f.MaxRuleApplications = n

	default:
		return errors.Newf("unknown argument: %s", arg.Key)
	}
	return nil
}

func checkRuleName(name string) error {
	for _, r := range relational.Rules() {
		if r.Name() == name {
			return nil
		}
	}
	return errors.Newf("unknown rule: %s", name)
}

// Optimize builds and optimizes the query, and returns the best plan along
// with the optimizer that found it.
func (ot *OptTester) Optimize() (*xform.Plan, *xform.Optimizer, error) {
	q, err := relational.ParseQuery([]byte(ot.query))
	if err != nil {
		return nil, nil, err
	}
	cat, err := q.Catalog()
	if err != nil {
		return nil, nil, err
	}
	root, err := q.Build(cat)
	if err != nil {
		return nil, nil, err
	}

	cfg := xform.DefaultConfig()
	cfg.MaxRuleApplications = ot.Flags.MaxRuleApplications
	cfg.CheckInvariants = true
	o := xform.New(relational.NewCoster(cat), xform.WithConfig(cfg))
	var rules []xform.Rule
	for _, r := range relational.Rules() {
		if !ot.Flags.DisableRules[r.Name()] {
			rules = append(rules, r)
		}
	}
	if err := relational.Install(o, rules); err != nil {
		return nil, nil, err
	}

	ot.appliedRules = make(map[string]*ruleStats)
	o.NotifyOnAppliedRule(func(rule xform.Rule, _ []memo.NodeID, added int) {
		s, ok := ot.appliedRules[rule.Name()]
		if !ok {
			s = &ruleStats{}
			ot.appliedRules[rule.Name()] = s
		}
		s.applied++
		s.added += added
	})

	o.SetRoot(root, q.Required())
	plan, err := o.Optimize(context.Background())
	return plan, o, err
}

// Memo optimizes the query and returns the memo.
func (ot *OptTester) Memo() (string, error) {
	_, o, err := ot.Optimize()
	if o == nil {
		return "", err
	}
	if err != nil && !errors.Is(err, opt.ErrNoPlan) {
		return "", err
	}
	return o.Memo().String(), nil
}

// RuleStats optimizes the query and returns how many times each rule was
// applied and how many nodes it added.
func (ot *OptTester) RuleStats() (string, error) {
	if _, _, err := ot.Optimize(); err != nil {
		return "", err
	}
	names := make([]string, 0, len(ot.appliedRules))
	for name := range ot.appliedRules {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	var total ruleStats
	fmt.Fprintf(&b, "%-16s %7s %5s\n", "rule", "applied", "added")
	for _, name := range names {
		s := ot.appliedRules[name]
		fmt.Fprintf(&b, "%-16s %7d %5d\n", name, s.applied, s.added)
		total.applied += s.applied
		total.added += s.added
	}
	fmt.Fprintf(&b, "%-16s %7d %5d\n", "total", total.applied, total.added)
	return b.String(), nil
}

func (ot *OptTester) checkExpectedRules(tb testing.TB, d *datadriven.TestData) {
	for _, name := range ot.Flags.ExpectedRules {
		if _, ok := ot.appliedRules[name]; !ok {
			d.Fatalf(tb, "expected %s to be applied", name)
		}
	}
	for _, name := range ot.Flags.UnexpectedRules {
		if _, ok := ot.appliedRules[name]; ok {
			d.Fatalf(tb, "expected %s not to be applied", name)
		}
	}
}
