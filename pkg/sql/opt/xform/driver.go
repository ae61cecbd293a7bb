// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/util/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/cockroachdb/volcano/pkg/sql/opt/xform")

// RuleDriver decides the order in which rules are applied during a search.
type RuleDriver interface {
	// Drive runs the search through every phase. It returns nil when the
	// search completes or runs out of budget; the memo then holds the best
	// plan found. Any other error means the search failed.
	Drive(ctx context.Context) error

	// Clear discards all queued work.
	Clear()

	// OnProduce is called after a new node is registered in the memo.
	OnProduce(n *memo.Node, s *memo.Subset)

	// OnSetMerged is called after another set is merged into s.
	OnSetMerged(s *memo.Set)

	// RuleQueue returns the queue holding the pending matches.
	RuleQueue() *RuleQueue
}

// IterativeRuleDriver applies matches from the queue one at a time, in
// priority order, until the queue has no match for the phase. The memo is
// canonized after every application.
type IterativeRuleDriver struct {
	o     *Optimizer
	queue RuleQueue

	// progress rate limits the progress events of long phases.
	progress log.Throttled
}

var _ RuleDriver = (*IterativeRuleDriver)(nil)

// NewIterativeRuleDriver returns a driver for the optimizer.
func NewIterativeRuleDriver(o *Optimizer) *IterativeRuleDriver {
	d := &IterativeRuleDriver{o: o, progress: log.Throttle(time.Second)}
	d.queue.Init(&o.mem, o.cfg.ImportanceDecay)
	return d
}

// Drive implements the RuleDriver interface.
func (d *IterativeRuleDriver) Drive(ctx context.Context) error {
	for _, phase := range Phases {
		done, err := d.drivePhase(ctx, phase)
		if err != nil || done {
			return err
		}
	}
	return nil
}

// drivePhase applies matches for the phase until none is left. It returns
// true if the search ran out of budget and must not continue with the next
// phase.
func (d *IterativeRuleDriver) drivePhase(ctx context.Context, phase Phase) (done bool, _ error) {
	ctx, span := tracer.Start(ctx, "phase "+phase.String())
	defer span.End()

	applied := 0
	for {
		match := d.queue.PopMatch(phase)
		if match == nil {
			break
		}
		if !match.Matches() {
			panic(errors.AssertionFailedf("popped stale match %s in phase %s", match.Digest(), phase))
		}
		if err := match.OnMatch(ctx); err != nil {
			if !errors.Is(err, opt.ErrTimeout) {
				return false, err
			}
			d.o.canonize()
			d.queue.PhaseCompleted(phase)
			d.o.recordPhaseCompleted(phase)
			d.o.recordTimeout()
			span.SetAttributes(attribute.Int("applied", applied), attribute.Bool("timeout", true))
			log.VEventf(ctx, 1, "phase %s: search stopped after %d matches: %v; root cost %s",
				phase, applied, err, d.o.rootCost())
			return true, nil
		}
		applied++
		d.o.canonize()
		if log.ExpensiveLogEnabled(ctx, 2) {
			log.VEventf(ctx, 2, "phase %s: applied %s; root cost %s", phase, match.Digest(), d.o.rootCost())
		} else if ok, suppressed := d.progress.Allow(); ok {
			log.VEventf(ctx, 1, "phase %s: %d matches applied, %d queued; root cost %s (%d updates suppressed)",
				phase, applied, d.queue.PhaseLen(phase), d.o.rootCost(), suppressed)
		}
	}
	d.queue.PhaseCompleted(phase)
	d.o.recordPhaseCompleted(phase)
	span.SetAttributes(attribute.Int("applied", applied))
	log.VEventf(ctx, 1, "phase %s completed: %d matches applied; root cost %s", phase, applied, d.o.rootCost())
	return false, nil
}

// Clear implements the RuleDriver interface.
func (d *IterativeRuleDriver) Clear() {
	d.queue.Clear()
	d.progress.Reset()
}

// OnProduce implements the RuleDriver interface. The iterative driver learns
// about new nodes through the matches queued for them.
func (d *IterativeRuleDriver) OnProduce(n *memo.Node, s *memo.Subset) {}

// OnSetMerged implements the RuleDriver interface. Stale matches are dropped
// when they are popped.
func (d *IterativeRuleDriver) OnSetMerged(s *memo.Set) {}

// RuleQueue implements the RuleDriver interface.
func (d *IterativeRuleDriver) RuleQueue() *RuleQueue {
	return &d.queue
}
