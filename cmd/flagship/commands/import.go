package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/validation"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import specs from a ruleset file",
	Long: `Import specs from a YAML or JSON ruleset file. Every spec is validated
before anything is sent.

Examples:
  flagship import ruleset.yaml --env prod
  flagship import ruleset.yaml --env staging --dry-run
  flagship import ruleset.yaml --env prod --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		// YAML is a superset of JSON, so one decoder reads both.
		var file store.SeedFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse file: %w", err)
		}
		if len(file.Specs) == 0 {
			return fmt.Errorf("no specs found in file")
		}
		if verbose {
			fmt.Printf("Found %d spec(s) to import\n", len(file.Specs))
		}

		invalid := 0
		for _, s := range file.Specs {
			if s.Env == "" {
				s.Env = "prod"
			}
			if res := validation.ValidateSpec(s); !res.Valid {
				invalid++
				fmt.Fprintf(os.Stderr, "Invalid spec '%s': %s\n", s.Name, formatErrors(res.Errors))
			}
		}
		if invalid > 0 && !importForce {
			return fmt.Errorf("%d invalid spec(s), use --force to import the rest", invalid)
		}

		if importDryRun {
			fmt.Println("Dry run mode - the following specs would be imported:")
			for _, s := range file.Specs {
				fmt.Printf("  - %s (%s, enabled: %v, rollout: %d%%)\n", s.Name, s.Kind, s.Enabled, s.Rollout)
			}
			return nil
		}

		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}
		ctx := context.Background()

		successCount, errorCount := 0, 0
		for _, s := range file.Specs {
			if effectiveEnv != "" {
				s.Env = effectiveEnv
			}
			if verbose {
				fmt.Printf("Importing spec: %s\n", s.Name)
			}
			if err := upsert(ctx, c, s); err != nil {
				errorCount++
				fmt.Fprintf(os.Stderr, "Failed to import '%s': %v\n", s.Name, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
				continue
			}
			successCount++
		}

		if !quiet {
			fmt.Printf("Import complete: %d succeeded, %d failed\n", successCount, errorCount)
		}
		if errorCount > 0 && !importForce {
			return fmt.Errorf("import completed with errors")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
