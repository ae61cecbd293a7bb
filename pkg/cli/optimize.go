// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/cli/cliflags"
	"github.com/cockroachdb/volcano/pkg/sql/opt/relational"
	"github.com/cockroachdb/volcano/pkg/sql/opt/xform"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// optimizeCtx captures the command-line parameters of the optimize command.
var optimizeCtx struct {
	configPath string
	// timeout and maxRules override the config file when non-zero.
	timeout   time.Duration
	maxRules  int
	disable   []string
	showMemo  bool
	showStats bool
}

func setOptimizeContextDefaults() {
	optimizeCtx.configPath = ""
	optimizeCtx.timeout = 0
	optimizeCtx.maxRules = 0
	optimizeCtx.disable = nil
	optimizeCtx.showMemo = false
	optimizeCtx.showStats = false
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <query.yaml>",
	Short: "find the cheapest plan of a query",
	Long: `
Reads a query and the tables it scans from a YAML file, searches for the
cheapest physical plan with the relational rules, and prints it.

The search stops early when the timeout or the rule application budget is
spent; the best plan found so far is printed.
`,
	Args: exactArgs(1),
	RunE: runOptimize,
}

func init() {
	setOptimizeContextDefaults()

	f := optimizeCmd.Flags()
	StringFlag(f, &optimizeCtx.configPath, cliflags.Config, optimizeCtx.configPath)
	DurationFlag(f, &optimizeCtx.timeout, cliflags.Timeout, optimizeCtx.timeout)
	IntFlag(f, &optimizeCtx.maxRules, cliflags.MaxRuleApplications, optimizeCtx.maxRules)
	StringSliceFlag(f, &optimizeCtx.disable, cliflags.DisableRules, optimizeCtx.disable)
	BoolFlag(f, &optimizeCtx.showMemo, cliflags.ShowMemo, optimizeCtx.showMemo)
	BoolFlag(f, &optimizeCtx.showStats, cliflags.ShowStats, optimizeCtx.showStats)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := optimizeConfig()
	if err != nil {
		return err
	}
	rules, err := enabledRules(optimizeCtx.disable)
	if err != nil {
		return errors.Mark(err, errFlag)
	}

	q, err := relational.LoadQuery(args[0])
	if err != nil {
		return errors.Mark(err, errInvalidInput)
	}
	cat, err := q.Catalog()
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s", args[0]), errInvalidInput)
	}
	root, err := q.Build(cat)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "%s", args[0]), errInvalidInput)
	}

	o := xform.New(relational.NewCoster(cat), xform.WithConfig(cfg))
	if err := relational.Install(o, rules); err != nil {
		return err
	}
	// Phase assignments of the config file replace those of the rule set.
	for p, names := range cfg.PhaseRules() {
		o.SetPhaseRules(p, names...)
	}
	o.SetRoot(root, q.Required())

	plan, err := o.Optimize(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprint(w, plan)
	if optimizeCtx.showMemo {
		fmt.Fprint(w, o.Memo())
	}
	if optimizeCtx.showStats {
		writeStats(w, o.Stats())
	}
	return nil
}

func optimizeConfig() (xform.Config, error) {
	cfg := xform.DefaultConfig()
	if path := optimizeCtx.configPath; path != "" {
		var err error
		if cfg, err = xform.LoadConfig(path); err != nil {
			return xform.Config{}, errors.Mark(err, errInvalidInput)
		}
	}
	if optimizeCtx.timeout != 0 {
		cfg.Timeout = optimizeCtx.timeout
	}
	if optimizeCtx.maxRules != 0 {
		cfg.MaxRuleApplications = optimizeCtx.maxRules
	}
	if err := cfg.Validate(); err != nil {
		return xform.Config{}, errors.Mark(err, errFlag)
	}
	return cfg, nil
}

// enabledRules returns the relational rules minus the disabled ones.
func enabledRules(disable []string) ([]xform.Rule, error) {
	all := relational.Rules()
	skip := make(map[string]bool, len(disable))
	for _, name := range disable {
		found := false
		for _, r := range all {
			if r.Name() == name {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Newf("unknown rule %q", name)
		}
		skip[name] = true
	}
	rules := all[:0]
	for _, r := range all {
		if !skip[r.Name()] {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

func writeStats(w io.Writer, st xform.Stats) {
	tw := tabwriter.NewWriter(w, 2, 1, 2, ' ', 0)
	fmt.Fprintf(tw, "rule applications:\t%s\n", humanize.Comma(int64(st.RuleApplications)))
	fmt.Fprintf(tw, "stale matches:\t%s\n", humanize.Comma(int64(st.StaleMatches)))
	fmt.Fprintf(tw, "phases completed:\t%d\n", st.PhasesCompleted)
	fmt.Fprintf(tw, "timeouts:\t%d\n", st.Timeouts)
	fmt.Fprintf(tw, "memo:\t%s sets, %s subsets, %s nodes, %s merges\n",
		humanize.Comma(int64(st.Memo.Sets)), humanize.Comma(int64(st.Memo.Subsets)),
		humanize.Comma(int64(st.Memo.Nodes)), humanize.Comma(int64(st.Memo.Merges)))
	_ = tw.Flush()
}
