package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const seedYAML = `specs:
  - name: new_checkout
    kind: feature_gate
    enabled: true
    rollout: 25
    salt: checkout-v2
  - name: pricing
    kind: dynamic_config
    enabled: true
    config:
      price: 9.99
      currency: EUR
    variants:
      - name: control
        weight: 50
      - name: discount
        weight: 50
        config:
          price: 7.99
  - name: checkout_layer
    kind: layer
    enabled: true
    env: staging
    config:
      button: blue
    delegate: button_experiment
    explicitParameters: [button]
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}
	return path
}

func TestSeedFromFile(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	n, err := SeedFromFile(ctx, st, writeSeed(t, seedYAML), "prod")
	if err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 specs, got %d", n)
	}

	prod, _ := st.GetAllSpecs(ctx, "prod")
	if len(prod) != 2 {
		t.Fatalf("Expected 2 prod specs, got %d", len(prod))
	}

	pricing, err := st.GetSpec(ctx, "pricing", "prod")
	if err != nil {
		t.Fatalf("GetSpec failed: %v", err)
	}
	if pricing.Config["currency"] != "EUR" {
		t.Errorf("Expected currency EUR, got %v", pricing.Config["currency"])
	}
	if len(pricing.Variants) != 2 || pricing.Variants[1].Config["price"] != 7.99 {
		t.Errorf("Unexpected variants %+v", pricing.Variants)
	}

	layer, err := st.GetSpec(ctx, "checkout_layer", "staging")
	if err != nil {
		t.Fatalf("Expected layer in its own env: %v", err)
	}
	if layer.Delegate != "button_experiment" || len(layer.ExplicitParameters) != 1 {
		t.Errorf("Unexpected layer %+v", layer)
	}
}

func TestSeedFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "specs: [:"},
		{name: "missing name", content: "specs:\n  - kind: feature_gate\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SeedFromFile(context.Background(), NewMemoryStore(), writeSeed(t, tt.content), "prod"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestSeedFromFile_MissingFile(t *testing.T) {
	if _, err := SeedFromFile(context.Background(), NewMemoryStore(), "/does/not/exist.yaml", "prod"); err == nil {
		t.Error("Expected error for missing file")
	}
}
