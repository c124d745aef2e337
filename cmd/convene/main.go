// Package main implements the convene CLI for running multi-actor
// turn-coordinated simulations from a YAML configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath points at the simulation YAML document.
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "convene",
	Short: "Turn-coordination engine for multi-actor simulations",
	Long: `convene schedules turns across a roster of actors, controls which
actors can observe each other, filters and commits their output, and
bounds the whole run with rate limits, quotas, and a circuit breaker.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to simulation config YAML")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

// validateCmd parses and validates a config without running it.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a simulation config",
	Long: `Validate parses the configuration file, applies defaults, and checks
every policy kind against the built-in registry without starting a run.

Examples:
  convene validate -c simulation.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	sim, err := buildSimulation(configPath)
	if err != nil {
		return err
	}
	defer sim.close()
	fmt.Fprintf(cmd.OutOrStdout(), "config ok: %q with %d actors\n", sim.cfg.Name, len(sim.cfg.Actors))
	return nil
}
