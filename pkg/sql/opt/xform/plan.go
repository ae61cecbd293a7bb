// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/xlab/treeprint"
)

// Plan is the best operator tree found for a subset.
type Plan struct {
	Op     opt.Operator
	Traits physical.TraitSet
	Cost   memo.Cost
	Inputs []*Plan
}

func (p *Plan) line() string {
	return fmt.Sprintf("%s %s (cost=%s)", p.Op.Digest(), p.Traits, p.Cost)
}

// String formats the plan as a tree, one operator per line.
func (p *Plan) String() string {
	tp := treeprint.New()
	tp.SetValue(p.line())
	p.format(tp)
	return tp.String()
}

func (p *Plan) format(tp treeprint.Tree) {
	for _, in := range p.Inputs {
		in.format(tp.AddBranch(in.line()))
	}
}

// extractPlan builds the plan made of the best node of the root subset and,
// recursively, the best nodes of the subsets supplying its inputs.
func (o *Optimizer) extractPlan() (*Plan, error) {
	root := o.mem.Root()
	if o.mem.BestNode(root) == nil {
		return nil, errors.Mark(
			errors.Newf("no plan with traits %s found for set %d; memo:\n%s",
				root.Traits(), root.Set(), o.mem.String()),
			opt.ErrNoPlan,
		)
	}
	return o.buildPlan(root, make(map[memo.SubsetID]struct{}))
}

func (o *Optimizer) buildPlan(sub *memo.Subset, onPath map[memo.SubsetID]struct{}) (*Plan, error) {
	if _, ok := onPath[sub.ID()]; ok {
		return nil, errors.AssertionFailedf("best plan of subset %d refers to itself", sub.ID())
	}
	n := o.mem.BestNode(sub)
	if n == nil {
		return nil, errors.AssertionFailedf("subset %d of a finite cost plan has no best node", sub.ID())
	}
	onPath[sub.ID()] = struct{}{}
	defer delete(onPath, sub.ID())

	p := &Plan{Op: n.Op(), Traits: n.Traits(), Cost: n.Cost()}
	for i := 0; i < n.InputCount(); i++ {
		in, err := o.buildPlan(o.mem.InputSubset(n, i), onPath)
		if err != nil {
			return nil, err
		}
		p.Inputs = append(p.Inputs, in)
	}
	return p, nil
}
