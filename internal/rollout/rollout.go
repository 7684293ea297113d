// Package rollout assigns units to percentage rollouts and experiment
// variants. Assignment is a pure function of unit id, spec name and salt, so
// raising a rollout percentage only ever adds units.
package rollout

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

// Buckets is the number of buckets units are hashed into.
const Buckets = 100

// ErrInvalidRollout is returned when the rollout percentage is not in the valid range (0-100).
var ErrInvalidRollout = errors.New("rollout must be between 0 and 100")

// ErrInvalidVariantWeights is returned when variant weights don't sum to 100.
var ErrInvalidVariantWeights = errors.New("variant weights must sum to 100")

// Bucket returns the bucket (0-99) of unitID for a spec, or -1 without a unit id.
func Bucket(unitID, specName, salt string) int {
	if unitID == "" {
		return -1
	}
	d := xxhash.New()
	_, _ = d.WriteString(unitID)
	_, _ = d.Write([]byte{':'})
	_, _ = d.WriteString(specName)
	_, _ = d.Write([]byte{':'})
	_, _ = d.WriteString(salt)
	return int(d.Sum64() % Buckets)
}

// Passes reports whether unitID falls inside a rollout of percent.
// 0 excludes everyone and 100 includes everyone, even without a unit id.
func Passes(unitID, specName string, percent int32, salt string) (bool, error) {
	switch {
	case percent < 0 || percent > 100:
		return false, ErrInvalidRollout
	case percent == 0:
		return false, nil
	case percent == 100:
		return true, nil
	}
	b := Bucket(unitID, specName, salt)
	return b >= 0 && b < int(percent), nil
}

// ValidateVariants checks names are non-empty and unique and weights sum to 100.
// No variants is valid.
func ValidateVariants(variants []store.Variant) error {
	if len(variants) == 0 {
		return nil
	}

	total := 0
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if v.Name == "" {
			return errors.New("variant name cannot be empty")
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate variant name: %s", v.Name)
		}
		seen[v.Name] = struct{}{}
		if v.Weight < 0 || v.Weight > 100 {
			return fmt.Errorf("variant %s: weight must be between 0 and 100", v.Name)
		}
		total += v.Weight
	}
	if total != 100 {
		return ErrInvalidVariantWeights
	}
	return nil
}

// Pick returns the variant unitID is assigned to by cumulative weight, or nil
// when there are no variants or no unit id.
//
// Example: [A:50, B:30, C:20] maps buckets 0-49 to A, 50-79 to B, 80-99 to C.
func Pick(unitID, specName string, variants []store.Variant, salt string) (*store.Variant, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	if err := ValidateVariants(variants); err != nil {
		return nil, err
	}
	b := Bucket(unitID, specName, salt)
	if b < 0 {
		return nil, nil
	}

	upper := 0
	for i := range variants {
		upper += variants[i].Weight
		if b < upper {
			return &variants[i], nil
		}
	}
	return &variants[len(variants)-1], nil
}
