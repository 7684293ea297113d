package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a spec",
	Long: `Delete a spec from the specified environment.

Examples:
  flagship delete new_ui --env prod
  flagship delete new_ui --env prod --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}

		if !deleteForce && !quiet {
			fmt.Printf("Are you sure you want to delete '%s' from environment '%s'? (y/N): ", name, effectiveEnv)
			response, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Deletion cancelled")
				return nil
			}
		}

		if err := c.DeleteSpec(context.Background(), name, effectiveEnv); err != nil {
			return fmt.Errorf("failed to delete spec: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully deleted '%s' from environment '%s'\n", name, effectiveEnv)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
