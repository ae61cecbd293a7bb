// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottle(t *testing.T) {
	testCases := []struct {
		at      time.Duration
		ok      bool
		dropped int
	}{
		{0, true, 0},
		{0, false, 0},
		{time.Second, false, 0},
		{time.Minute - 1, false, 0},
		{time.Minute, true, 3},
		{time.Minute, false, 0},
		{10 * time.Minute, true, 1},
		{11 * time.Minute, true, 0},
	}
	start := time.Now()
	th := NewThrottle(time.Minute)
	for i, tc := range testCases {
		ok, dropped := th.Admit(start.Add(tc.at))
		require.Equal(t, tc.ok, ok, "event %d", i)
		require.Equal(t, tc.dropped, dropped, "event %d", i)
	}

	th.Reset()
	ok, dropped := th.Admit(start.Add(11 * time.Minute))
	require.True(t, ok)
	require.Zero(t, dropped)
}

func TestThrottleZeroValue(t *testing.T) {
	var th Throttle
	now := time.Now()
	for i := 0; i < 3; i++ {
		ok, dropped := th.Admit(now)
		require.True(t, ok)
		require.Zero(t, dropped)
	}
}
