package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

var (
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export specs to a ruleset file",
	Long: `Export all specs of an environment. The YAML output is a ruleset file
the sidecar can load with RULESET_FILE.

Examples:
  flagship export --env prod --output ruleset.yaml
  flagship export --env prod --output ruleset.json --format json
  flagship export --env prod > backup.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, effectiveEnv, err := newClient(true)
		if err != nil {
			return err
		}

		specs, err := c.ListSpecs(context.Background(), effectiveEnv)
		if err != nil {
			return fmt.Errorf("failed to list specs: %w", err)
		}

		file := store.SeedFile{Specs: make([]store.UpsertParams, 0, len(specs))}
		for _, s := range specs {
			p := paramsFromSpec(s)
			p.Env = ""
			file.Specs = append(file.Specs, p)
		}

		output := os.Stdout
		if exportOutput != "" && exportOutput != "-" {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		switch format {
		case "json":
			encoder := json.NewEncoder(output)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(file); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			encoder := yaml.NewEncoder(output)
			defer encoder.Close()
			encoder.SetIndent(2)
			if err := encoder.Encode(file); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		default:
			return fmt.Errorf("unsupported export format: %s", format)
		}

		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(os.Stderr, "Successfully exported %d spec(s) to %s\n", len(specs), exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
