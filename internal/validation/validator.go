// Package validation checks specs submitted through the admin API and the seed file.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

const (
	// MaxKeyLength is the maximum length for spec names
	MaxKeyLength = 64
	// MaxEnvLength is the maximum length for environment names
	MaxEnvLength = 32
	// MaxDescriptionLength is the maximum length for spec descriptions
	MaxDescriptionLength = 500
	// MaxConfigSize is the maximum size of config JSON in bytes
	MaxConfigSize = 100 * 1024 // 100KB
	// MinRollout is the minimum rollout percentage
	MinRollout = 0
	// MaxRollout is the maximum rollout percentage
	MaxRollout = 100
	// MaxVariantNameLength is the maximum length for variant names
	MaxVariantNameLength = 64
	// MaxExpressionLength is the maximum length of a targeting expression
	MaxExpressionLength = 4096
)

// keyPattern matches alphanumeric characters, underscores, and hyphens
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// ValidateSpec validates all spec fields and returns a validation result
func ValidateSpec(params store.UpsertParams) *ValidationResult {
	result := NewValidationResult()

	result.Merge(ValidateKey(params.Name))
	result.Merge(ValidateKind(params.Kind))
	result.Merge(ValidateEnv(params.Env))
	result.Merge(ValidateDescription(params.Description))
	result.Merge(ValidateRollout(params.Rollout))

	if params.Config != nil {
		raw, err := json.Marshal(params.Config)
		if err != nil {
			result.AddError("config", "Config must be JSON-encodable: "+err.Error())
		} else {
			result.Merge(ValidateConfigSize(string(raw)))
		}
	}

	if len(params.Variants) > 0 {
		if params.Kind == store.KindGate {
			result.AddError("variants", "Feature gates cannot have variants")
		} else {
			result.Merge(ValidateVariants(params.Variants))
		}
	}

	if params.Expression != nil && utf8.RuneCountInString(*params.Expression) > MaxExpressionLength {
		result.AddError("expression", fmt.Sprintf("Expression must not exceed %d characters", MaxExpressionLength))
	}

	if params.RequiresGate != "" {
		if params.RequiresGate == params.Name {
			result.AddError("requiresGate", "A spec cannot require itself")
		} else if r := ValidateKey(params.RequiresGate); !r.Valid {
			result.AddError("requiresGate", r.Errors["key"])
		}
	}

	result.Merge(validateLayerFields(params))
	return result
}

// ValidateKind validates a spec kind
func ValidateKind(kind store.Kind) *ValidationResult {
	result := NewValidationResult()

	switch kind {
	case store.KindGate, store.KindDynamicConfig, store.KindLayer:
	case "":
		result.AddError("kind", "Kind is required")
	default:
		result.AddError("kind", "Kind must be one of feature_gate, dynamic_config, layer")
	}

	return result
}

// validateLayerFields checks delegate and explicit parameters, which only layers may carry.
func validateLayerFields(params store.UpsertParams) *ValidationResult {
	result := NewValidationResult()

	if params.Kind != store.KindLayer {
		if params.Delegate != "" || len(params.ExplicitParameters) > 0 {
			result.AddError("delegate", "Only layers can have a delegate or explicit parameters")
		}
		return result
	}

	if len(params.ExplicitParameters) > 0 && params.Delegate == "" {
		result.AddError("delegate", "Explicit parameters require a delegate experiment")
		return result
	}
	if params.Delegate == params.Name && params.Delegate != "" {
		result.AddError("delegate", "A layer cannot delegate to itself")
		return result
	}

	seen := make(map[string]bool, len(params.ExplicitParameters))
	for _, p := range params.ExplicitParameters {
		if strings.TrimSpace(p) == "" {
			result.AddError("explicitParameters", "Explicit parameter names cannot be empty")
			break
		}
		if seen[p] {
			result.AddError("explicitParameters", "Duplicate explicit parameter: "+p)
			break
		}
		seen[p] = true
	}

	return result
}

// ValidateKey validates a spec name
func ValidateKey(key string) *ValidationResult {
	result := NewValidationResult()
	key = strings.TrimSpace(key)

	if key == "" {
		result.AddError("key", "Key is required")
		return result
	}

	if utf8.RuneCountInString(key) > MaxKeyLength {
		result.AddError("key", "Key must not exceed 64 characters")
		return result
	}

	if !keyPattern.MatchString(key) {
		result.AddError("key", "Key must contain only alphanumeric characters, underscores, and hyphens")
		return result
	}

	return result
}

// ValidateEnv validates an environment name
func ValidateEnv(env string) *ValidationResult {
	result := NewValidationResult()
	env = strings.TrimSpace(env)

	if env == "" {
		result.AddError("env", "Environment is required")
		return result
	}

	if utf8.RuneCountInString(env) > MaxEnvLength {
		result.AddError("env", "Environment must not exceed 32 characters")
		return result
	}

	return result
}

// ValidateDescription validates a spec description
func ValidateDescription(description string) *ValidationResult {
	result := NewValidationResult()

	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		result.AddError("description", "Description must not exceed 500 characters")
	}

	return result
}

// ValidateRollout validates a rollout percentage
func ValidateRollout(rollout int32) *ValidationResult {
	result := NewValidationResult()

	if rollout < MinRollout || rollout > MaxRollout {
		result.AddError("rollout", "Rollout must be between 0 and 100")
	}

	return result
}

// ValidateConfigSize validates the config JSON size
func ValidateConfigSize(configJSON string) *ValidationResult {
	result := NewValidationResult()

	if len(configJSON) > MaxConfigSize {
		result.AddError("config", "Config must not exceed 100KB")
	}

	return result
}

// ValidateConfigJSON validates that config is valid JSON object
func ValidateConfigJSON(configStr string) (*ValidationResult, map[string]any) {
	result := NewValidationResult()

	if strings.TrimSpace(configStr) == "" {
		return result, nil
	}

	var config map[string]any
	if err := json.Unmarshal([]byte(configStr), &config); err != nil {
		result.AddError("config", "Config must be valid JSON: "+err.Error())
		return result, nil
	}

	return result, config
}

// ValidateVariants validates a list of variants
func ValidateVariants(variants []store.Variant) *ValidationResult {
	result := NewValidationResult()

	if len(variants) == 0 {
		return result
	}

	totalWeight := 0
	seenNames := make(map[string]bool)

	for i, v := range variants {
		// Validate name
		if strings.TrimSpace(v.Name) == "" {
			result.AddError("variants", "Variant name cannot be empty")
			continue
		}

		if utf8.RuneCountInString(v.Name) > MaxVariantNameLength {
			result.AddError("variants", "Variant name must not exceed 64 characters")
			continue
		}

		if seenNames[v.Name] {
			result.AddError("variants", "Duplicate variant name: "+v.Name)
			continue
		}
		seenNames[v.Name] = true

		// Validate weight
		if v.Weight < 0 || v.Weight > 100 {
			result.AddError("variants", "Variant weight must be between 0 and 100")
		}

		totalWeight += v.Weight

		// Prevent any other validation errors for same field
		if !result.Valid && i > 0 {
			break
		}
	}

	if result.Valid && totalWeight != 100 {
		result.AddError("variants", "Variant weights must sum to 100")
	}

	return result
}
