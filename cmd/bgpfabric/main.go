// Command bgpfabric builds a BGP interdomain fabric from a declarative YAML
// topology, runs propagation to steady state, and reports the resulting
// per-router RIB.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bgpfabric",
	Short: "Simulate a static multi-AS BGP control plane",
}
