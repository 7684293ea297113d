package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
)

// Ruleset is an immutable view of every spec of one environment.
type Ruleset struct {
	ETag      string                `json:"etag"`
	Specs     map[string]store.Spec `json:"specs"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// BuildRuleset indexes specs by name. The ETag is a hash of the content, so
// reloading an unchanged store yields the same ETag.
func BuildRuleset(specs []store.Spec) *Ruleset {
	byName := make(map[string]store.Spec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	blob, _ := json.Marshal(byName)
	sum := sha256.Sum256(blob)
	return &Ruleset{
		ETag:      `W/"` + hex.EncodeToString(sum[:]) + `"`,
		Specs:     byName,
		UpdatedAt: time.Now().UTC(),
	}
}

func (r *Ruleset) lookup(name string, kind store.Kind) (store.Spec, bool) {
	if r == nil {
		return store.Spec{}, false
	}
	s, ok := r.Specs[name]
	if !ok || s.Kind != kind {
		return store.Spec{}, false
	}
	return s, true
}
