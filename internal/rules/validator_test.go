package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/strategy"
)

func validSuggestion() *delegate.RuleSuggestion {
	return &delegate.RuleSuggestion{
		QPattern: "authorized to work",
		Strategy: strategy.Definition{
			Kind:   strategy.KindOneOfOptions,
			Params: map[string]any{"preferred": []any{"yes"}},
		},
		Confidence: 0.9,
	}
}

func TestValidate_AcceptsValidSuggestion(t *testing.T) {
	v := NewSuggestionValidator(nil)

	ok, reason := v.Validate(validSuggestion())
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidate_RejectsNil(t *testing.T) {
	v := NewSuggestionValidator(nil)

	ok, reason := v.Validate(nil)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestValidate_PatternBounds(t *testing.T) {
	v := NewSuggestionValidator(nil)

	s := validSuggestion()
	s.QPattern = ""
	ok, _ := v.Validate(s)
	assert.False(t, ok)

	s.QPattern = "ab"
	ok, reason := v.Validate(s)
	assert.False(t, ok)
	assert.Contains(t, reason, "too short")

	s.QPattern = strings.Repeat("a", 201)
	ok, reason = v.Validate(s)
	assert.False(t, ok)
	assert.Contains(t, reason, "too long")

	s.QPattern = strings.Repeat("a", 200)
	ok, _ = v.Validate(s)
	assert.True(t, ok)
}

func TestValidate_RejectsMalformedRegex(t *testing.T) {
	v := NewSuggestionValidator(nil)

	s := validSuggestion()
	s.QPattern = "(unclosed"
	ok, reason := v.Validate(s)
	assert.False(t, ok)
	assert.Contains(t, reason, "invalid regex")
}

func TestValidate_RejectsUnknownStrategyKind(t *testing.T) {
	v := NewSuggestionValidator(nil)

	s := validSuggestion()
	s.Strategy.Kind = "magic"
	ok, reason := v.Validate(s)
	assert.False(t, ok)
	assert.Contains(t, reason, "unknown strategy kind")

	s.Strategy.Kind = ""
	ok, _ = v.Validate(s)
	assert.False(t, ok)
}

func TestValidate_PerKindParamContracts(t *testing.T) {
	v := NewSuggestionValidator(nil)

	tests := []struct {
		name  string
		def   strategy.Definition
		valid bool
	}{
		{"literal with value", strategy.Definition{Kind: strategy.KindLiteral, Params: map[string]any{"value": true}}, true},
		{"literal without value", strategy.Definition{Kind: strategy.KindLiteral}, false},
		{"profile_key with key", strategy.Definition{Kind: strategy.KindProfileKey, Params: map[string]any{"key": "phone"}}, true},
		{"profile_key empty key", strategy.Definition{Kind: strategy.KindProfileKey, Params: map[string]any{"key": ""}}, false},
		{"numeric without key", strategy.Definition{Kind: strategy.KindNumericFromProfile}, false},
		{"one_of_options with preferred list", strategy.Definition{Kind: strategy.KindOneOfOptions, Params: map[string]any{"preferred": []any{"Yes"}}}, true},
		{"one_of_options preferred not a list", strategy.Definition{Kind: strategy.KindOneOfOptions, Params: map[string]any{"preferred": "yes"}}, false},
		{"one_of_options empty preferred list", strategy.Definition{Kind: strategy.KindOneOfOptions, Params: map[string]any{"preferred": []any{}}}, false},
		{"one_of_options with synonym map", strategy.Definition{Kind: strategy.KindOneOfOptions, Params: map[string]any{"synonyms": map[string]any{"Yes": []any{"affirmative"}}}}, true},
		{"one_of_options synonyms not a map", strategy.Definition{Kind: strategy.KindOneOfOptions, Params: map[string]any{"synonyms": []any{"yes"}}}, false},
		{"one_of_options bare", strategy.Definition{Kind: strategy.KindOneOfOptions}, false},
		{"from_profile with key", strategy.Definition{Kind: strategy.KindOneOfOptionsFromProfile, Params: map[string]any{"key": "relocate"}}, true},
		{"salary with both params", strategy.Definition{Kind: strategy.KindSalaryByCurrency, Params: map[string]any{"key_template": "salary_expectation.monthly_net_{currency}", "default_currency": "nis"}}, true},
		{"salary without default_currency", strategy.Definition{Kind: strategy.KindSalaryByCurrency, Params: map[string]any{"key_template": "salary_expectation.monthly_net_{currency}"}}, false},
		{"salary without template", strategy.Definition{Kind: strategy.KindSalaryByCurrency}, false},
	}
	for _, tt := range tests {
		s := validSuggestion()
		s.Strategy = tt.def
		ok, reason := v.Validate(s)
		assert.Equal(t, tt.valid, ok, "%s: %s", tt.name, reason)
	}
}
