// Command poolbench drives synthetic workloads through an object pool and
// reports allocator statistics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "poolbench",
		Short: "Benchmark the fixed-size object pool",
		Long: `poolbench allocates and releases batches of fixed-size orders through
an object pool and reports what the pool and the system allocator did.

Example:
  poolbench run --objects 100000 --rounds 50 --order random
  poolbench run --config bench.yaml --format json
  POOLBENCH_BATCH=4096 poolbench run --metrics-addr :9102`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "poolbench %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		},
	}
}
