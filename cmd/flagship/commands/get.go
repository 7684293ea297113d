package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Get a spec",
	Long: `Show the stored definition of a gate, config or layer.

Examples:
  flagship get new_ui --env prod
  flagship get pricing --env prod --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}

		spec, err := c.GetSpec(context.Background(), args[0], effectiveEnv)
		if err != nil {
			return fmt.Errorf("failed to get spec: %w", err)
		}

		if !quiet {
			return cli.PrintSpec(spec, cli.OutputFormat(format))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
