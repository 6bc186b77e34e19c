// Package delegate sends unresolved form fields to a reasoning model and
// validates what comes back. Nothing a delegate returns is trusted until it
// passes Validate.
package delegate

import (
	"context"
	"fmt"

	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/profile"
	"github.com/jonathan/apply-agent/internal/strategy"
)

// Decision actions the delegate may take for a field.
const (
	ActionSelect = "select"
	ActionText   = "text"
	ActionNumber = "number"
	ActionCheck  = "check"
	ActionSkip   = "skip"
)

// FieldInfo describes a form field for the delegate.
type FieldInfo struct {
	Kind     field.Kind `json:"kind"`
	Question string     `json:"question"`
	Options  []string   `json:"options,omitempty"`
	Required bool       `json:"required"`
}

// RuleSuggestion is a reusable rule proposed by the delegate. It is only a
// proposal; the suggestion validator decides whether it is ever stored.
type RuleSuggestion struct {
	QPattern   string              `json:"q_pattern"`
	Strategy   strategy.Definition `json:"strategy"`
	Confidence float64             `json:"confidence"`
}

// Decision is the delegate's structured answer for one field.
type Decision struct {
	Decision    string          `json:"decision"`
	Value       any             `json:"value,omitempty"`
	Confidence  float64         `json:"confidence"`
	SuggestRule *RuleSuggestion `json:"suggest_rule,omitempty"`
}

// Validate checks the structural contract of a decision: a known action and
// a confidence inside [0, 1].
func (d *Decision) Validate() error {
	switch d.Decision {
	case ActionSelect, ActionText, ActionNumber, ActionCheck, ActionSkip:
	default:
		return fmt.Errorf("unknown decision action %q", d.Decision)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0, 1]", d.Confidence)
	}
	if d.Decision != ActionSkip && d.Value == nil {
		return fmt.Errorf("decision %q carries no value", d.Decision)
	}
	return nil
}

// Skip reports whether the decision declines to answer the field.
func (d *Decision) Skip() bool {
	return d == nil || d.Decision == ActionSkip
}

// Delegate is a reasoning backend for fields no rule or heuristic could
// answer.
type Delegate interface {
	// Decide returns a validated decision for the field, or an error when
	// the backend fails or returns something malformed.
	Decide(ctx context.Context, f FieldInfo, p *profile.Candidate, jobContext string) (*Decision, error)
	// GenerateRule asks for a reusable rule matching a value the delegate
	// already produced for the field.
	GenerateRule(ctx context.Context, f FieldInfo, value any, p *profile.Candidate, jobContext string) (*RuleSuggestion, error)
}
