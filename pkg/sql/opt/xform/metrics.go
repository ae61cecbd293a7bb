// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts the work done by optimizers. One Metrics may be shared by
// many optimizers.
type Metrics struct {
	RuleApplications *prometheus.CounterVec
	SetMerges        prometheus.Counter
	Timeouts         prometheus.Counter
	StaleMatches     prometheus.Counter
	PhasesCompleted  *prometheus.CounterVec
}

// NewMetrics creates the optimizer metrics and registers them with reg, if it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RuleApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volcano",
			Subsystem: "optimizer",
			Name:      "rule_applications_total",
			Help:      "Number of rule matches applied.",
		}, []string{"rule"}),
		SetMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "volcano",
			Subsystem: "optimizer",
			Name:      "set_merges_total",
			Help:      "Number of equivalence sets merged into another set.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "volcano",
			Subsystem: "optimizer",
			Name:      "timeouts_total",
			Help:      "Number of searches stopped because the budget was exhausted.",
		}),
		StaleMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "volcano",
			Subsystem: "optimizer",
			Name:      "stale_matches_total",
			Help:      "Number of queued matches dropped because a merge invalidated them.",
		}),
		PhasesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volcano",
			Subsystem: "optimizer",
			Name:      "phases_completed_total",
			Help:      "Number of search phases completed.",
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(m.RuleApplications, m.SetMerges, m.Timeouts, m.StaleMatches, m.PhasesCompleted)
	}
	return m
}
