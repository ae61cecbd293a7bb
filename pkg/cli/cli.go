// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cli implements the volcano command-line interface.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/volcano/pkg/cli/exit"
	"github.com/cockroachdb/volcano/pkg/sql/opt"
	"github.com/cockroachdb/volcano/pkg/util/log"
	"github.com/spf13/cobra"
)

// Proxy to allow overrides in tests.
var osStderr = os.Stderr

var versionIncludesDeps bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "output version information",
	Long: `
Output build version information.
`,
	Args: exactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		tag, deps := "(devel)", []*debug.Module(nil)
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.Main.Version != "" {
				tag = info.Main.Version
			}
			deps = info.Deps
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 1, 2, ' ', 0)
		fmt.Fprintf(tw, "Build Tag:   %s\n", tag)
		fmt.Fprintf(tw, "Platform:    %s %s/%s\n", runtime.Compiler, runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(tw, "Go Version:  %s\n", runtime.Version())
		if versionIncludesDeps {
			fmt.Fprintln(tw, "Build Deps:")
			for _, d := range deps {
				fmt.Fprintf(tw, "\t%s\t%s\n", d.Path, d.Version)
			}
		}
		_ = tw.Flush()
	},
}

var volcanoCmd = &cobra.Command{
	Use:   "volcano [command] (flags)",
	Short: "cost-based query plan search",
	Long: `
Searches the space of equivalent query plans with transformation rules and
returns the cheapest physical plan.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errFlag marks errors in the command-line arguments.
var errFlag = errors.New("invalid command line")

// errInvalidInput marks errors in the files named on the command line.
var errInvalidInput = errors.New("invalid input")

func init() {
	cobra.EnableCommandSorting = false

	// glog registers its flags (-v, -logtostderr, ...) with the standard flag
	// package.
	volcanoCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	volcanoCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Mark(err, errFlag)
	})
	versionCmd.Flags().BoolVar(&versionIncludesDeps, "build-deps", false,
		"Include the versions of the dependencies in the output.")

	volcanoCmd.AddCommand(
		optimizeCmd,
		versionCmd,
	)
}

// exactArgs is cobra.ExactArgs, with the error marked as a command-line error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.Mark(err, errFlag)
		}
		return nil
	}
}

// Main is the entry point for the volcano binary.
func Main() {
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "help")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := Run(ctx, os.Args[1:])
	interrupted := ctx.Err() != nil
	stop()

	errCode := exit.Success()
	if err != nil {
		fmt.Fprintf(osStderr, "ERROR: %v\n", err)
		errCode = errorCode(err)
	} else if interrupted {
		errCode = exit.Interrupted()
	}
	log.Flush()
	exit.WithCode(errCode)
}

// Run executes the command line given by args.
func Run(ctx context.Context, args []string) error {
	volcanoCmd.SetArgs(args)
	return volcanoCmd.ExecuteContext(ctx)
}

// errorCode chooses the exit code reported for err.
func errorCode(err error) exit.Code {
	switch {
	case errors.Is(err, errFlag):
		return exit.CommandLineFlagError()
	case errors.Is(err, errInvalidInput):
		return exit.InvalidInput()
	case errors.Is(err, opt.ErrNoPlan):
		return exit.NoPlanFound()
	case errors.HasAssertionFailure(err):
		return exit.UnspecifiedGoPanic()
	default:
		return exit.UnspecifiedError()
	}
}
