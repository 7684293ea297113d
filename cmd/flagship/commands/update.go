package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

var (
	updateEnabled     bool
	updateRollout     int32
	updateConfig      string
	updateDescription string
)

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Update a spec",
	Long: `Update fields of an existing spec. Only the flags given are changed.

Examples:
  flagship update new_ui --enabled=false --env prod
  flagship update new_ui --rollout 75 --env prod
  flagship update pricing --config '{"price":7.99}' --env prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}

		ctx := context.Background()
		current, err := c.GetSpec(ctx, args[0], effectiveEnv)
		if err != nil {
			return fmt.Errorf("failed to get spec: %w", err)
		}

		params := paramsFromSpec(*current)
		flags := cmd.Flags()
		if flags.Changed("enabled") {
			params.Enabled = updateEnabled
		}
		if flags.Changed("rollout") {
			params.Rollout = updateRollout
		}
		if flags.Changed("description") {
			params.Description = updateDescription
		}
		if flags.Changed("config") {
			var config map[string]any
			if err := json.Unmarshal([]byte(updateConfig), &config); err != nil {
				return fmt.Errorf("invalid config JSON: %w", err)
			}
			params.Config = config
		}

		if err := upsert(ctx, c, params); err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("Successfully updated '%s' in environment '%s'\n", params.Name, params.Env)
		}
		return nil
	},
}

func paramsFromSpec(s store.Spec) store.UpsertParams {
	return store.UpsertParams{
		Name:               s.Name,
		Kind:               s.Kind,
		Description:        s.Description,
		Enabled:            s.Enabled,
		Rollout:            s.Rollout,
		Salt:               s.Salt,
		Expression:         s.Expression,
		RequiresGate:       s.RequiresGate,
		Config:             s.Config,
		Variants:           s.Variants,
		Delegate:           s.Delegate,
		ExplicitParameters: s.ExplicitParameters,
		Env:                s.Env,
	}
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&updateEnabled, "enabled", false, "Enable or disable the spec")
	updateCmd.Flags().Int32Var(&updateRollout, "rollout", 0, "Rollout percentage (0-100)")
	updateCmd.Flags().StringVar(&updateConfig, "config", "", "Config value as JSON")
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "Description")
}
