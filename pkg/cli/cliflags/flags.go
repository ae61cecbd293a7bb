// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cliflags describes the command-line flags of the volcano binary.
package cliflags

import "strings"

// FlagInfo contains the static information for a CLI flag and helper
// to format the description.
type FlagInfo struct {
	// Name of the flag as used on the command line.
	Name string

	// Shorthand is the short form of the flag (optional).
	Shorthand string

	// EnvVar is the name of the environment variable through which the flag
	// can also be set (optional).
	EnvVar string

	// Description of the flag.
	Description string
}

// Usage returns a formatted usage string for the flag, including the
// environment variable if there is one.
func (f FlagInfo) Usage() string {
	s := strings.TrimSpace(f.Description)
	if f.EnvVar != "" {
		s += "\nEnvironment variable: " + f.EnvVar
	}
	return s
}

// Flags of the optimize command.
var (
	Config = FlagInfo{
		Name:        "config",
		Shorthand:   "c",
		EnvVar:      "VOLCANO_CONFIG",
		Description: `Path to a YAML file with optimizer settings.`,
	}

	Timeout = FlagInfo{
		Name:   "timeout",
		EnvVar: "VOLCANO_TIMEOUT",
		Description: `
Time budget of the search. When it expires the best plan found so far is
returned. Overrides the setting of the config file.`,
	}

	MaxRuleApplications = FlagInfo{
		Name: "max-rules",
		Description: `
Maximum number of rule applications before the search stops. Overrides the
setting of the config file.`,
	}

	DisableRules = FlagInfo{
		Name:        "disable",
		Description: `Comma-separated list of rules to leave out of the search.`,
	}

	ShowMemo = FlagInfo{
		Name:        "memo",
		Description: `Print the memo after the search.`,
	}

	ShowStats = FlagInfo{
		Name:        "stats",
		Description: `Print search statistics after the plan.`,
	}
)
