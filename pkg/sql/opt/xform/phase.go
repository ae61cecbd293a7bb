// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Phase is one stage of the search. Phases run in order, and each enables its
// own set of rules.
type Phase uint8

const (
	// PreProcessMDR runs metadata-driven simplifications.
	PreProcessMDR Phase = iota
	// PreProcess runs heuristic rewrites that are always beneficial.
	PreProcess
	// Optimize runs cost-based exploration and implementation.
	Optimize
	// Cleanup runs rules that tidy up the final plan.
	Cleanup

	numPhases
)

// Phases lists every phase in execution order.
var Phases = [...]Phase{PreProcessMDR, PreProcess, Optimize, Cleanup}

var phaseNames = [...]string{
	PreProcessMDR: "preprocess-mdr",
	PreProcess:    "preprocess",
	Optimize:      "optimize",
	Cleanup:       "cleanup",
}

func (p Phase) String() string {
	if p >= numPhases {
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
	return phaseNames[p]
}

// SafeValue implements the redact.SafeValue interface.
func (Phase) SafeValue() {}

// ParsePhase returns the phase with the given name. Case and underscores are
// ignored, so "PRE_PROCESS" and "preprocess" name the same phase.
func ParsePhase(s string) (Phase, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s))
	for _, p := range Phases {
		if strings.ReplaceAll(phaseNames[p], "-", "") == norm {
			return p, nil
		}
	}
	return 0, errors.Newf("unknown phase %q", s)
}

// phaseMask is a set of phases.
type phaseMask uint8

func (m phaseMask) contains(p Phase) bool {
	return m&(1<<p) != 0
}

func (m phaseMask) add(p Phase) phaseMask {
	return m | 1<<p
}

func (m phaseMask) remove(p Phase) phaseMask {
	return m &^ (1 << p)
}

// ruleSet is the set of rule names enabled in a phase.
type ruleSet struct {
	all   bool
	names map[string]struct{}
}

func makeRuleSet(names []string) ruleSet {
	rs := ruleSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		rs.names[n] = struct{}{}
	}
	return rs
}

func (rs ruleSet) contains(name string) bool {
	if rs.all {
		return true
	}
	_, ok := rs.names[name]
	return ok
}
