package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/cli"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flagship",
	Short: "CLI for the flagship evaluation sidecar",
	Long: `Flagship talks to a running flagship sidecar.

Evaluation commands use the client key and ask the sidecar to check gates,
read configs and layers, and log events. Spec commands use the admin key and
manage the gates, configs and layers the sidecar evaluates.

Examples:
  flagship check-gate new_ui --user-id u1
  flagship get-config pricing --user-id u1 --format json
  flagship list --env prod
  flagship create new_ui --kind feature_gate --enabled --rollout 20
  flagship export --env prod --output ruleset.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the sidecar")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment profile and spec environment")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newClient resolves the sidecar address and returns a client holding the
// client key, or the admin key when admin is set.
func newClient(admin bool) (*client.Client, string, error) {
	url, key, effectiveEnv, err := cli.Resolve(cli.Overrides{
		Env:     env,
		BaseURL: baseURL,
		APIKey:  apiKey,
		Admin:   admin,
	})
	if err != nil {
		return nil, "", fmt.Errorf("configuration error: %w", err)
	}
	if verbose {
		fmt.Printf("Using sidecar %s (env %q)\n", url, effectiveEnv)
	}
	return client.NewClient(url, key), effectiveEnv, nil
}
