package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of a ruleset file.
type SeedFile struct {
	Specs []UpsertParams `yaml:"specs"`
}

// SeedFromFile upserts every spec in the YAML file at path. Specs without an
// env are assigned env. It returns the number of specs written.
func SeedFromFile(ctx context.Context, st Store, path, env string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read ruleset file: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse ruleset file: %w", err)
	}

	for i, params := range file.Specs {
		if params.Name == "" {
			return i, fmt.Errorf("spec %d: name is required", i)
		}
		if params.Env == "" {
			params.Env = env
		}
		if err := st.UpsertSpec(ctx, params); err != nil {
			return i, fmt.Errorf("spec %s: %w", params.Name, err)
		}
	}
	return len(file.Specs), nil
}
