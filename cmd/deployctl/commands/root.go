package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deployctl",
		Short: "deployctl - Deployment orchestration and rollback engine",
		Long: `deployctl submits, watches and rolls back service deployments.

It drives two platform families:
  - Blue/green deployments: package a revision, submit it, poll until
    terminal, and roll back via platform stop, automatic rollback or
    manual redeploy from a known-good specification
  - Rolling deployments on Kubernetes: roll back a Helm release or a
    workload rollout, with unhealthy-instance diagnostics captured
    around the action

Platform interaction goes through the aws, helm and kubectl CLIs,
executed locally or on a remote runner host over SSH. Every run is
recorded in a local history database.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "deployctl.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newRollbackCommand())
	rootCmd.AddCommand(newKubeRollbackCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
