package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvvbapiraju/deployctl/pkg/config"
	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded deployment history",
		Long: `Inspect the local deployment history database.

Every deploy and rollback run is recorded together with the timeline
events emitted while it ran. Requires history.path to be set in the
config.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded deployment runs",
		Example: `  # Most recent runs
  deployctl history list

  # Next page
  deployctl history list --limit 20 --offset 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			runs, err := store.ListDeploymentRuns(ctx, limit, offset)
			if err != nil {
				return err
			}

			return printResult(runs, func() {
				if len(runs) == 0 {
					fmt.Println("No deployment runs recorded")
					return
				}
				for _, run := range runs {
					line := fmt.Sprintf("%s  %s  %s/%s  %s",
						run.StartedAt.Format("2006-01-02 15:04:05"),
						run.DeploymentID, run.Application, run.Group, run.Status)
					if run.Error != nil {
						line += "  " + *run.Error
					}
					fmt.Println(line)
				}
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <deployment-id>",
		Short: "Show rollbacks and timeline events for a deployment",
		Example: `  deployctl history show d-ABCD1234`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deploymentID := args[0]

			store, closeStore, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			actions, err := store.ListRollbackActions(ctx, deploymentID)
			if err != nil {
				return err
			}
			events, err := store.ListEvents(ctx, deploymentID)
			if err != nil {
				return err
			}

			detail := struct {
				DeploymentID string                   `json:"deployment_id"`
				Rollbacks    []*stores.RollbackAction `json:"rollbacks"`
				Events       []*stores.HistoryEvent   `json:"events"`
			}{deploymentID, actions, events}

			return printResult(detail, func() {
				fmt.Printf("Deployment %s\n", deploymentID)

				fmt.Printf("\nRollbacks (%d):\n", len(actions))
				for _, action := range actions {
					fmt.Printf("  %s  %s  %s -> %s\n",
						action.ExecutedAt.Format("2006-01-02 15:04:05"),
						action.Mode, action.StatusBefore, action.StatusAfter)
					if action.StopError != nil {
						fmt.Printf("    stop failed (continued): %s\n", *action.StopError)
					}
				}

				fmt.Printf("\nTimeline (%d):\n", len(events))
				for _, event := range events {
					fmt.Printf("  %s  [%s] %s\n",
						event.Timestamp.Format("2006-01-02 15:04:05"),
						event.Type, event.Message)
				}
			})
		},
	}

	return cmd
}

// openHistory opens the configured history store without bringing up
// the full runtime; history commands never touch the platform.
func openHistory(ctx context.Context) (*stores.SQLiteStore, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.History.Path == "" {
		return nil, nil, engine.NewValidationError("history is not configured, set history.path")
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.History.Path})
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
