// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"os"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config controls a search.
type Config struct {
	// Timeout bounds the wall time of Optimize. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRuleApplications bounds the number of matches applied by Optimize.
	// Zero means no limit.
	MaxRuleApplications int `yaml:"max_rule_applications"`

	// ImportanceDecay scales importance from a set to its inputs. It must be
	// in (0, 1].
	ImportanceDecay float64 `yaml:"importance_decay"`

	// Phases maps a phase name to the names of the rules it enables. Phases
	// that are not listed keep their default rules.
	Phases map[string][]string `yaml:"phases"`

	// CheckInvariants verifies the memo after every canonization. It is slow.
	CheckInvariants bool `yaml:"check_invariants"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{ImportanceDecay: DefaultImportanceDecay}
}

// LoadConfig reads a YAML configuration file. Settings missing from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading optimizer config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing optimizer config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values out of range and unknown
// phase names.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return errors.Newf("timeout must not be negative: %s", c.Timeout)
	}
	if c.MaxRuleApplications < 0 {
		return errors.Newf("max_rule_applications must not be negative: %d", c.MaxRuleApplications)
	}
	if c.ImportanceDecay <= 0 || c.ImportanceDecay > 1 {
		return errors.Newf("importance_decay must be in (0, 1]: %g", c.ImportanceDecay)
	}
	for name := range c.Phases {
		if _, err := ParsePhase(name); err != nil {
			return err
		}
	}
	return nil
}

// PhaseRules returns the configured rule names per phase. Names that parse
// to the same phase are merged in sorted name order; invalid names are
// skipped, since Validate reports them.
func (c *Config) PhaseRules() map[Phase][]string {
	res := make(map[Phase][]string, len(c.Phases))
	names := make([]string, 0, len(c.Phases))
	for name := range c.Phases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := ParsePhase(name)
		if err != nil {
			continue
		}
		res[p] = append(res[p], c.Phases[name]...)
	}
	return res
}
