// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import (
	"math"
	"strconv"
)

// Cost is the best-effort approximation of the actual cost of executing a
// particular operator tree. Costs are cumulative: the cost of a node includes
// the best costs of its inputs.
type Cost struct {
	C float64
}

// MaxCost is the maximum possible estimated cost. It is used as the cost of
// nodes that cannot be implemented, and of subsets with no best node yet.
var MaxCost = Cost{C: math.Inf(+1)}

// costTolerance is the relative difference below which two costs are
// considered equal. It keeps floating point noise from flipping the best
// node of a subset back and forth.
const costTolerance = 1e-10

// Less returns true if this cost is lower than the given cost, after
// accounting for floating point tolerance.
func (c Cost) Less(other Cost) bool {
	if math.IsInf(other.C, +1) {
		return !math.IsInf(c.C, +1)
	}
	if math.IsInf(c.C, +1) {
		return false
	}
	diff := other.C - c.C
	if diff <= 0 {
		return false
	}
	return diff > costTolerance*math.Max(math.Abs(c.C), math.Abs(other.C))
}

// Add adds the other cost to this cost.
func (c *Cost) Add(other Cost) {
	c.C += other.C
}

// IsInfinite returns true if the cost is MaxCost.
func (c Cost) IsInfinite() bool {
	return math.IsInf(c.C, +1)
}

// SafeValue implements the redact.SafeValue interface.
func (Cost) SafeValue() {}

func (c Cost) String() string {
	if c.IsInfinite() {
		return "inf"
	}
	return strconv.FormatFloat(c.C, 'g', 8, 64)
}
