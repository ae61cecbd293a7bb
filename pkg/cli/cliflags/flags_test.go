// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cliflags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	require.Equal(t, "Print the memo after the search.", ShowMemo.Usage())
	require.Equal(t,
		"Path to a YAML file with optimizer settings.\nEnvironment variable: VOLCANO_CONFIG",
		Config.Usage())
}
