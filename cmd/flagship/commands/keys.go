package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/auth"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate sidecar API keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an API key and its bcrypt hash",
	Long: `Generate a random API key. Give the key to callers and set the hash as
ADMIN_API_KEY_HASH so the sidecar never stores the key itself.

Example:
  flagship keys generate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return err
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Printf("key:  %s\nhash: %s\n", key, hash)
		return nil
	},
}

var keysHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Print the bcrypt hash of an existing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysHashCmd)
}
