package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var knownKeys = map[string]struct{}{
	"years_experience":   {},
	"salary_expectation": {},
	"work_authorization": {},
	"links":              {},
	"notice_period_days": {},
	"preferred_location": {},
	"phone":              {},
	"short_bio_en":       {},
	"short_bio_ru":       {},
}

// Load reads a candidate profile from a JSON or YAML file (by extension),
// moves unmodeled keys into Extra, and validates field bounds. Out-of-range
// or wrongly typed values are rejected, never clamped.
func Load(path string) (*Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
		}
	}

	known := make(map[string]any)
	extra := make(map[string]any)
	for k, v := range raw {
		if _, ok := knownKeys[k]; ok {
			known[k] = v
		} else {
			extra[k] = v
		}
	}

	// Round-trip the known keys through JSON so type mismatches surface as
	// parse errors instead of silent zero values.
	knownJSON, err := json.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile fields: %w", err)
	}
	var c Candidate
	dec := json.NewDecoder(strings.NewReader(string(knownJSON)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("invalid profile field in %s: %w", path, err)
	}
	if len(extra) > 0 {
		c.Extra = extra
	}

	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("profile %s failed validation: %w", path, err)
	}
	return &c, nil
}
