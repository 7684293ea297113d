package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/validation"
)

var (
	createKind        string
	createEnabled     bool
	createRollout     int32
	createConfig      string
	createDescription string
	createRequires    string
	createDelegate    string
	createExplicit    []string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a spec",
	Long: `Create a gate, dynamic config or layer. An existing spec with the
same name is replaced.

Examples:
  flagship create new_ui --enabled --rollout 50 --env prod
  flagship create pricing --kind dynamic_config --enabled --config '{"price":9.99}'
  flagship create checkout --kind layer --enabled --config '{"color":"blue"}' \
      --delegate checkout_exp --explicit color`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var config map[string]any
		if createConfig != "" {
			if err := json.Unmarshal([]byte(createConfig), &config); err != nil {
				return fmt.Errorf("invalid config JSON: %w", err)
			}
		}

		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}

		params := store.UpsertParams{
			Name:               args[0],
			Kind:               store.Kind(createKind),
			Description:        createDescription,
			Enabled:            createEnabled,
			Rollout:            createRollout,
			RequiresGate:       createRequires,
			Config:             config,
			Delegate:           createDelegate,
			ExplicitParameters: createExplicit,
			Env:                effectiveEnv,
		}
		if err := upsert(context.Background(), c, params); err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Successfully created %s '%s' in environment '%s'\n", params.Kind, params.Name, effectiveEnv)
		}
		return nil
	},
}

// upsertClient is the slice of client.Client the mutating commands need.
type upsertClient interface {
	UpsertSpec(ctx context.Context, params store.UpsertParams) (string, error)
}

// upsert validates params locally, then sends them to the sidecar.
func upsert(ctx context.Context, c upsertClient, params store.UpsertParams) error {
	if res := validation.ValidateSpec(params); !res.Valid {
		return fmt.Errorf("invalid spec '%s': %s", params.Name, formatErrors(res.Errors))
	}
	etag, err := c.UpsertSpec(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to save spec '%s': %w", params.Name, err)
	}
	if verbose {
		fmt.Printf("Ruleset etag: %s\n", etag)
	}
	return nil
}

func formatErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&createKind, "kind", string(store.KindGate), "Spec kind (feature_gate, dynamic_config, layer)")
	createCmd.Flags().BoolVar(&createEnabled, "enabled", false, "Enable the spec")
	createCmd.Flags().Int32Var(&createRollout, "rollout", 100, "Rollout percentage (0-100)")
	createCmd.Flags().StringVar(&createConfig, "config", "", "Config value as JSON")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Description")
	createCmd.Flags().StringVar(&createRequires, "requires-gate", "", "Gate the unit must pass first")
	createCmd.Flags().StringVar(&createDelegate, "delegate", "", "Experiment that owns the layer's explicit parameters")
	createCmd.Flags().StringArrayVar(&createExplicit, "explicit", nil, "Explicit layer parameter (repeatable)")
}
