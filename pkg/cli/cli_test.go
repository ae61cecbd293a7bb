// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"bytes"
	"context"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/cli/exit"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/testutils/echotest"
	"github.com/cockroachdb/volcano/pkg/util/leaktest"
	"github.com/cockroachdb/volcano/pkg/util/log"
	"github.com/stretchr/testify/require"
)

// runCLI runs the command line with fresh flag values and returns its output.
func runCLI(args ...string) (string, error) {
	setOptimizeContextDefaults()
	versionIncludesDeps = false
	var buf bytes.Buffer
	volcanoCmd.SetOut(&buf)
	defer volcanoCmd.SetOut(nil)
	err := Run(context.Background(), args)
	return buf.String(), err
}

func TestOptimize(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	w := echotest.NewWalker(t, "testdata/output")

	for _, test := range []struct {
		name string
		args []string
	}{
		{name: "join_stats", args: []string{"optimize", "testdata/queries/join.yaml", "--stats"}},
		{name: "join_no_commute", args: []string{"optimize", "testdata/queries/join.yaml", "--disable=JoinCommute"}},
		{name: "ordered_memo", args: []string{"optimize", "--memo", "testdata/queries/ordered.yaml"}},
	} {
		t.Run(test.name, w.Run(t, test.name, func(t *testing.T) string {
			out, err := runCLI(test.args...)
			require.NoError(t, err)
			return out
		}))
	}
}

func TestOptimizeConfig(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	out, err := runCLI("optimize", "-c", "testdata/no_commute.yaml", "testdata/queries/join.yaml")
	require.NoError(t, err)
	require.Contains(t, out, "hash-join physical (cost=3020)")

	// The command line overrides the rule budget of the config file; one rule
	// application is not enough to implement the join.
	_, err = runCLI("optimize", "-c", "testdata/no_commute.yaml", "--max-rules=1",
		"testdata/queries/join.yaml")
	require.True(t, errors.Is(err, opt.ErrNoPlan), "%+v", err)

	// Keys naming the same phase enable the union of their rules, whatever the
	// map order.
	for i := 0; i < 10; i++ {
		out, err := runCLI("optimize", "-c", "testdata/split_phases.yaml", "testdata/queries/join.yaml")
		require.NoError(t, err)
		require.Contains(t, out, "hash-join physical (cost=3020)")
	}
}

func TestOptimizeErrors(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	testCases := []struct {
		name string
		args []string
		code exit.Code
		err  string
	}{
		{
			name: "missing query",
			args: []string{"optimize"},
			code: exit.CommandLineFlagError(),
			err:  "accepts 1 arg(s), received 0",
		},
		{
			name: "unknown flag",
			args: []string{"optimize", "--frobnicate", "testdata/queries/join.yaml"},
			code: exit.CommandLineFlagError(),
			err:  "unknown flag: --frobnicate",
		},
		{
			name: "unknown rule",
			args: []string{"optimize", "--disable=Frobnicate", "testdata/queries/join.yaml"},
			code: exit.CommandLineFlagError(),
			err:  `unknown rule "Frobnicate"`,
		},
		{
			name: "negative timeout",
			args: []string{"optimize", "--timeout=-1s", "testdata/queries/join.yaml"},
			code: exit.CommandLineFlagError(),
			err:  "timeout must not be negative",
		},
		{
			name: "missing file",
			args: []string{"optimize", "testdata/queries/missing.yaml"},
			code: exit.InvalidInput(),
			err:  "reading query",
		},
		{
			name: "missing config",
			args: []string{"optimize", "-c", "testdata/missing.yaml", "testdata/queries/join.yaml"},
			code: exit.InvalidInput(),
			err:  "reading optimizer config",
		},
		{
			name: "no plan",
			args: []string{"optimize", "--disable=EnforceSort", "testdata/queries/ordered.yaml"},
			code: exit.NoPlanFound(),
			err:  "no plan with traits physical [+1] found for set 1",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(tc.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
			require.Equal(t, tc.code, errorCode(err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	require.Equal(t, exit.UnspecifiedError(), errorCode(errors.New("boom")))
	require.Equal(t, exit.UnspecifiedGoPanic(), errorCode(errors.AssertionFailedf("boom")))
	require.Equal(t, exit.NoPlanFound(), errorCode(errors.Wrap(errors.Mark(errors.New("x"), opt.ErrNoPlan), "y")))
}

func TestVersion(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)
	out, err := runCLI("version")
	require.NoError(t, err)
	require.Contains(t, out, "Go Version:  "+runtime.Version())

	_, err = runCLI("version", "extra")
	require.Equal(t, exit.CommandLineFlagError(), errorCode(err))
}
