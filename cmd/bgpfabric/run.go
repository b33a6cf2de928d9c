package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nordlayer/bgpfabric"
	"github.com/nordlayer/bgpfabric/config"
)

type runCmd struct {
	ConfigPath string
}

var runArgs runCmd

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Build a topology, announce its prefixes, and print the resulting RIB",
	Run: func(_ *cobra.Command, _ []string) {
		if err := run(runArgs); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	runCommand.Flags().StringVarP(&runArgs.ConfigPath, "config", "c", "", "Path to the topology YAML file (required)")
	runCommand.MarkFlagRequired("config")
	rootCmd.AddCommand(runCommand)
}

func run(cmd runCmd) error {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Development = false
	logCfg.Level.SetLevel(zap.InfoLevel)

	logger, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	topo, err := config.Load(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sim, err := topo.Build(bgpfabric.WithLog(log))
	if err != nil {
		return fmt.Errorf("failed to build topology: %w", err)
	}

	printTables(sim.BGPTables())
	return nil
}

// printTables renders a BGP table snapshot one route per line, sorted for
// determinism: router, then prefix, then route fields. Output order is not
// itself part of the RIB's semantics; it only needs to be stable across
// runs so diffing two invocations is meaningful.
func printTables(tables map[string]map[string][]bgpfabric.Route) {
	routers := make([]string, 0, len(tables))
	for router := range tables {
		routers = append(routers, router)
	}
	sort.Strings(routers)

	for _, router := range routers {
		prefixes := make([]string, 0, len(tables[router]))
		for prefix := range tables[router] {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			routes := tables[router][prefix]
			sorted := make([]bgpfabric.Route, len(routes))
			copy(sorted, routes)
			sort.Slice(sorted, func(i, j int) bool {
				return fmt.Sprint(sorted[i]) < fmt.Sprint(sorted[j])
			})
			for _, r := range sorted {
				fmt.Printf("%s %s nexthop=%s as_path=%v pref=%d med=%d router_id=%d src=%s\n",
					router, prefix, r.Nexthop, r.ASPath, r.Pref, r.Med, r.RouterID, r.Src)
			}
		}
	}
}
