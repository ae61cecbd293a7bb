// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
timeout: 250ms
max_rule_applications: 100
importance_decay: 0.5
check_invariants: true
phases:
  PRE_PROCESS: [FilterMerge]
`))
	require.NoError(t, err)
	require.Equal(t, Config{
		Timeout:             250 * time.Millisecond,
		MaxRuleApplications: 100,
		ImportanceDecay:     0.5,
		CheckInvariants:     true,
		Phases: map[string][]string{
			"PRE_PROCESS": {"FilterMerge"},
		},
	}, cfg)

	rules := cfg.PhaseRules()
	require.Equal(t, []string{"FilterMerge"}, rules[PreProcess])
	_, ok := rules[Optimize]
	require.False(t, ok)

	// Names of the same phase are merged in sorted order.
	cfg.Phases = map[string][]string{
		"optimize": {"ImplementScan"},
		"OPTIMIZE": {"ImplementJoin"},
		"cleanup":  {},
	}
	rules = cfg.PhaseRules()
	require.Equal(t, []string{"ImplementJoin", "ImplementScan"}, rules[Optimize])
	require.Len(t, rules, 2)

	// Missing settings keep their defaults.
	cfg, err = ParseConfig([]byte("timeout: 1s\n"))
	require.NoError(t, err)
	require.Equal(t, DefaultImportanceDecay, cfg.ImportanceDecay)
}

func TestParseConfigErrors(t *testing.T) {
	testCases := []struct {
		yaml string
		err  string
	}{
		{yaml: "importance_decay: 1.5", err: "importance_decay must be in (0, 1]"},
		{yaml: "importance_decay: 0", err: "importance_decay must be in (0, 1]"},
		{yaml: "max_rule_applications: -1", err: "max_rule_applications must not be negative"},
		{yaml: "timeout: -1s", err: "timeout must not be negative"},
		{yaml: "phases: {explore: [A]}", err: `unknown phase "explore"`},
		{yaml: "timeout: [1]", err: "parsing optimizer config"},
	}
	for _, tc := range testCases {
		t.Run(tc.yaml, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_rule_applications: 7\n"), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxRuleApplications)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading optimizer config")
}

func TestParsePhase(t *testing.T) {
	for _, p := range Phases {
		got, err := ParsePhase(p.String())
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
	p, err := ParsePhase("PRE_PROCESS_MDR")
	require.NoError(t, err)
	require.Equal(t, PreProcessMDR, p)
	require.Equal(t, "phase(9)", Phase(9).String())

	var m phaseMask
	m = m.add(Optimize).add(Cleanup)
	require.True(t, m.contains(Optimize))
	require.False(t, m.contains(PreProcess))
	require.False(t, m.remove(Optimize).contains(Optimize))
}
