package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/cli"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/client"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
)

var (
	userID      string
	userEmail   string
	userCountry string
	customIDs   []string
	layerParams []string
	eventValue  string
	eventMeta   string
)

// buildUser assembles the user from the evaluation flags.
func buildUser() (model.User, error) {
	u := model.User{UserID: userID, Email: userEmail, Country: userCountry}
	for _, kv := range customIDs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return u, fmt.Errorf("invalid --custom-id %q, expected type=value", kv)
		}
		if u.CustomIDs == nil {
			u.CustomIDs = map[string]string{}
		}
		u.CustomIDs[k] = v
	}
	return u, nil
}

func addUserFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&userID, "user-id", "", "User ID")
	cmd.Flags().StringVar(&userEmail, "email", "", "User email")
	cmd.Flags().StringVar(&userCountry, "country", "", "User country")
	cmd.Flags().StringArrayVar(&customIDs, "custom-id", nil, "Custom ID as type=value (repeatable)")
}

var checkGateCmd = &cobra.Command{
	Use:   "check-gate <gate>",
	Short: "Check a gate for a user",
	Long: `Evaluate a feature gate for a user and print its value.

Examples:
  flagship check-gate new_ui --user-id u1
  flagship check-gate new_ui --custom-id companyID=acme`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := buildUser()
		if err != nil {
			return err
		}
		c, _, err := newClient(false)
		if err != nil {
			return err
		}

		res, err := c.CheckGate(context.Background(), user, args[0])
		if err != nil {
			return fmt.Errorf("failed to check gate: %w", err)
		}
		if !quiet {
			fmt.Printf("%s: %t\n", res.Name, res.Value)
		}
		return nil
	},
}

var getConfigCmd = &cobra.Command{
	Use:   "get-config <config>",
	Short: "Get a dynamic config for a user",
	Long: `Evaluate a dynamic config or experiment for a user and print its value.

Examples:
  flagship get-config pricing --user-id u1
  flagship get-config pricing --user-id u1 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := buildUser()
		if err != nil {
			return err
		}
		c, _, err := newClient(false)
		if err != nil {
			return err
		}

		res, err := c.GetConfig(context.Background(), user, args[0])
		if err != nil {
			return fmt.Errorf("failed to get config: %w", err)
		}
		if quiet {
			return nil
		}
		return cli.PrintValues(res.Name, res.RuleID, res.Value, cli.OutputFormat(format))
	},
}

var getLayerCmd = &cobra.Command{
	Use:   "get-layer <layer>",
	Short: "Get a layer for a user",
	Long: `Evaluate a layer for a user. Parameters passed with --param are read
through the layer, which records a layer exposure for each of them.

Examples:
  flagship get-layer checkout --user-id u1 --param button_color`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := buildUser()
		if err != nil {
			return err
		}
		c, _, err := newClient(false)
		if err != nil {
			return err
		}

		res, err := c.GetLayer(context.Background(), user, args[0], layerParams)
		if err != nil {
			return fmt.Errorf("failed to get layer: %w", err)
		}
		if quiet {
			return nil
		}
		values := res.Value
		if len(layerParams) > 0 {
			values = res.Parameters
		}
		return cli.PrintValues(res.Name, res.RuleID, values, cli.OutputFormat(format))
	},
}

var logEventCmd = &cobra.Command{
	Use:   "log-event <event>",
	Short: "Log a custom event",
	Long: `Send a custom event to the sidecar's log queue and flush it.

Numeric values are sent as numbers, anything else as a string.

Examples:
  flagship log-event purchase --user-id u1 --value 9.99
  flagship log-event signup --user-id u1 --metadata '{"plan":"pro"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := buildUser()
		if err != nil {
			return err
		}

		var metadata map[string]any
		if eventMeta != "" {
			if err := json.Unmarshal([]byte(eventMeta), &metadata); err != nil {
				return fmt.Errorf("invalid metadata JSON: %w", err)
			}
		}

		value := model.NoValue
		if eventValue != "" {
			if n, err := strconv.ParseFloat(eventValue, 64); err == nil {
				value = model.NumberValue(n)
			} else {
				value = model.StringValue(eventValue)
			}
		}

		c, _, err := newClient(false)
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := c.LogEvent(ctx, client.Event{User: user, EventName: args[0], Value: value, Metadata: metadata}); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		if err := c.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush: %w", err)
		}
		if !quiet {
			fmt.Printf("Logged event '%s'\n", args[0])
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{checkGateCmd, getConfigCmd, getLayerCmd, logEventCmd} {
		addUserFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
	getLayerCmd.Flags().StringArrayVar(&layerParams, "param", nil, "Parameter to read (repeatable)")
	logEventCmd.Flags().StringVar(&eventValue, "value", "", "Event value")
	logEventCmd.Flags().StringVar(&eventMeta, "metadata", "", "Event metadata as JSON")
}
