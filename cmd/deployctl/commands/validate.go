package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvvbapiraju/deployctl/pkg/config"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Validate the configuration file.

Checks yaml syntax, required fields, transport selection, and that
every configured rollback mode is one the engine supports. Nothing is
executed against any platform.`,
		Example: `  # Validate the default config file
  deployctl validate

  # Validate a specific file
  deployctl validate -c ./deploy/prod.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			sections := []string{}
			if cfg.Deploy != nil {
				sections = append(sections, "deploy")
			}
			if cfg.Rollback != nil {
				sections = append(sections, "rollback")
			}
			if cfg.Kubernetes != nil {
				sections = append(sections, "kubernetes")
			}

			summary := struct {
				Valid     bool     `json:"valid"`
				Transport string   `json:"transport"`
				History   bool     `json:"history"`
				Sections  []string `json:"sections"`
			}{true, cfg.Transport.Kind, cfg.History.Path != "", sections}

			return printResult(summary, func() {
				fmt.Printf("Configuration %s is valid\n", configPath)
				fmt.Printf("  transport: %s\n", cfg.Transport.Kind)
				fmt.Printf("  history:   %v\n", cfg.History.Path != "")
				fmt.Printf("  sections:  %v\n", sections)
			})
		},
	}

	return cmd
}
