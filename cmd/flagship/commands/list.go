package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/cli"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

var (
	listEnabledOnly bool
	listKind        string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all specs",
	Long: `List the gates, configs and layers stored for an environment.

Examples:
  flagship list --env prod
  flagship list --env prod --kind layer --format json
  flagship list --env prod --enabled-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}

		specs, err := c.ListSpecs(context.Background(), effectiveEnv)
		if err != nil {
			return fmt.Errorf("failed to list specs: %w", err)
		}

		filtered := specs[:0]
		for _, s := range specs {
			if listEnabledOnly && !s.Enabled {
				continue
			}
			if listKind != "" && s.Kind != store.Kind(listKind) {
				continue
			}
			filtered = append(filtered, s)
		}

		if quiet {
			return nil
		}
		if len(filtered) == 0 {
			fmt.Println("No specs found")
			return nil
		}
		return cli.PrintSpecs(filtered, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listEnabledOnly, "enabled-only", false, "Show only enabled specs")
	listCmd.Flags().StringVar(&listKind, "kind", "", "Show only specs of this kind")
}
