// poolbench exercises the palloc pools: the particle traversal
// benchmark, the size-class routing demo and an allocate/release churn
// workload.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "poolbench",
		Short:         "benchmarks and demos for the palloc object pools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newParticlesCmd(), newGPACmd(), newChurnCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
