package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Out is where the print helpers write. Tests swap it.
var Out io.Writer = os.Stdout

// PrintSpecs outputs specs in the specified format
func PrintSpecs(specs []store.Spec, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]store.Spec{"specs": specs})
	case FormatYAML:
		return printYAML(map[string][]store.Spec{"specs": specs})
	case FormatTable:
		return printSpecTable(specs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintSpec outputs a single spec in the specified format
func PrintSpec(spec *store.Spec, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(spec)
	case FormatYAML:
		return printYAML(spec)
	case FormatTable:
		return printSpecTable([]store.Spec{*spec})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintValues outputs an evaluation result. Tables list one key per row.
func PrintValues(name, ruleID string, values map[string]any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string]any{"name": name, "rule_id": ruleID, "value": values})
	case FormatYAML:
		return printYAML(map[string]any{"name": name, "rule_id": ruleID, "value": values})
	case FormatTable:
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		table := tablewriter.NewWriter(Out)
		table.Header("Key", "Value")
		for _, k := range keys {
			raw, _ := json.Marshal(values[k])
			table.Append(k, string(raw))
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data any) error {
	encoder := json.NewEncoder(Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data any) error {
	encoder := yaml.NewEncoder(Out)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printSpecTable(specs []store.Spec) error {
	table := tablewriter.NewWriter(Out)
	table.Header("Name", "Kind", "Enabled", "Rollout", "Env", "Description", "Updated At")

	for _, s := range specs {
		description := s.Description
		if r := []rune(description); len(r) > 40 {
			description = string(r[:37]) + "..."
		}
		table.Append(
			s.Name,
			string(s.Kind),
			fmt.Sprintf("%t", s.Enabled),
			fmt.Sprintf("%d%%", s.Rollout),
			s.Env,
			description,
			s.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	return table.Render()
}
