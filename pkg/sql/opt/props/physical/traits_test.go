// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package physical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraitSetSatisfies(t *testing.T) {
	ordered := Physical.WithOrdering(Ordering{1, -2})
	testCases := []struct {
		provided, required TraitSet
		expected           bool
	}{
		{Logical, Logical, true},
		{Physical, Physical, true},
		{Logical, Physical, false},
		{Physical, Logical, false},
		{ordered, Physical, true},
		{Physical, ordered, false},
		{ordered, Physical.WithOrdering(Ordering{1}), true},
		{ordered, Physical.WithOrdering(Ordering{-1}), false},
		{ordered, Physical.WithOrdering(Ordering{1, -2, 3}), false},
		{ordered, ordered, true},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, tc.provided.Satisfies(tc.required),
			"%s satisfies %s", tc.provided, tc.required)
	}
}

func TestTraitSetString(t *testing.T) {
	require.Equal(t, "none", Logical.String())
	require.Equal(t, "physical", Physical.Key())
	require.Equal(t, "physical [+1,-2]", Physical.WithOrdering(Ordering{1, -2}).String())
	require.True(t, Physical.WithOrdering(Ordering{3}).Equals(Physical.WithOrdering(Ordering{3})))
	require.False(t, Physical.Equals(Logical))
}

func TestWithOrderingCopies(t *testing.T) {
	o := Ordering{1, 2}
	ts := Physical.WithOrdering(o)
	o[0] = 5
	require.Equal(t, "physical [+1,+2]", ts.String())
}
