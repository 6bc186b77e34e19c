// Package rules implements the rule store and the decision engine that
// answer form fields from learned and hand-written rules.
package rules

import (
	"github.com/jonathan/apply-agent/internal/strategy"
)

// SchemaVersion is the rule file schema this package reads and writes.
const SchemaVersion = "1.0"

// Scope restricts where a rule applies. Site "*" matches any site.
type Scope struct {
	Site     string   `json:"site" yaml:"site"`
	FormKind string   `json:"form_kind" yaml:"form_kind"`
	Locales  []string `json:"locale,omitempty" yaml:"locale,omitempty"`
}

// SignaturePattern is the matching side of a rule: which fields it answers.
type SignaturePattern struct {
	FieldKind          string `json:"field_kind" yaml:"field_kind"`
	QPattern           string `json:"q_pattern" yaml:"q_pattern"`
	OptionsFingerprint string `json:"options_fingerprint,omitempty" yaml:"options_fingerprint,omitempty"`
}

// Constraints carries optional field constraints recorded with a rule.
type Constraints struct {
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Min       *int   `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *int   `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength *int   `json:"maxlength,omitempty" yaml:"maxlength,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Meta records rule provenance and usage bookkeeping.
type Meta struct {
	Source     string  `json:"source" yaml:"source"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	CreatedAt  string  `json:"created_at" yaml:"created_at"`
	Hits       int     `json:"hits" yaml:"hits"`
	LastSeen   string  `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
}

// Rule answers a class of form fields with a strategy.
type Rule struct {
	ID          string              `json:"id" yaml:"id"`
	Scope       Scope               `json:"scope" yaml:"scope"`
	Signature   SignaturePattern    `json:"signature" yaml:"signature"`
	Strategy    strategy.Definition `json:"strategy" yaml:"strategy"`
	Constraints Constraints         `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Meta        Meta                `json:"meta" yaml:"meta"`
}

// File is the on-disk rule store structure.
type File struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
	Rules         []Rule `json:"rules" yaml:"rules"`
}
