package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/strategy"
)

// Pattern length bounds for learned rules.
const (
	minPatternLength = 3
	maxPatternLength = 200
)

// SuggestionValidator screens delegate rule suggestions before they are
// stored. Only structurally sound suggestions with known strategies and
// complete params pass.
type SuggestionValidator struct {
	logger *slog.Logger
}

// NewSuggestionValidator creates a SuggestionValidator.
func NewSuggestionValidator(logger *slog.Logger) *SuggestionValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuggestionValidator{logger: logger}
}

// Validate checks a rule suggestion. The second return is the rejection
// reason, empty when valid.
func (v *SuggestionValidator) Validate(s *delegate.RuleSuggestion) (bool, string) {
	if s == nil {
		return false, "empty suggestion"
	}

	if ok, reason := v.validatePattern(s.QPattern); !ok {
		return false, reason
	}
	if ok, reason := v.validateStrategy(s.Strategy); !ok {
		return false, reason
	}
	return true, ""
}

func (v *SuggestionValidator) validatePattern(qPattern string) (bool, string) {
	pattern := strings.TrimSpace(qPattern)
	if pattern == "" {
		return false, "missing or empty q_pattern"
	}
	if n := len([]rune(pattern)); n < minPatternLength {
		return false, fmt.Sprintf("pattern too short (minimum %d characters)", minPatternLength)
	} else if n > maxPatternLength {
		return false, fmt.Sprintf("pattern too long (maximum %d characters)", maxPatternLength)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	return true, ""
}

func (v *SuggestionValidator) validateStrategy(def strategy.Definition) (bool, string) {
	if def.Kind == "" {
		return false, "missing strategy.kind"
	}
	if !strategy.KnownKind(def.Kind) {
		return false, fmt.Sprintf("unknown strategy kind: %q", def.Kind)
	}

	params := def.Params
	switch def.Kind {
	case strategy.KindLiteral:
		if _, ok := params["value"]; !ok {
			return false, "strategy 'literal' requires 'value' in params"
		}
	case strategy.KindProfileKey, strategy.KindNumericFromProfile, strategy.KindOneOfOptionsFromProfile:
		if !hasStringParam(params, "key") {
			return false, fmt.Sprintf("strategy %q requires 'key' in params", def.Kind)
		}
	case strategy.KindOneOfOptions:
		// A learned rule must encode an actual preference; the first-option
		// fallback is too unsafe to learn. Params must also carry the wire
		// shapes: preferred is a string list, synonyms maps labels to alias
		// lists.
		hasPreferred := false
		if raw, ok := params["preferred"]; ok {
			list, listOk := strategy.StringList(raw)
			if !listOk || len(list) == 0 {
				return false, "strategy 'one_of_options' param 'preferred' must be a non-empty string list"
			}
			hasPreferred = true
		}
		hasSynonyms := false
		if raw, ok := params["synonyms"]; ok {
			table, mapOk := strategy.SynonymMap(raw)
			if !mapOk || len(table) == 0 {
				return false, "strategy 'one_of_options' param 'synonyms' must map labels to alias lists"
			}
			hasSynonyms = true
		}
		if !hasPreferred && !hasSynonyms {
			return false, "strategy 'one_of_options' requires 'preferred' or 'synonyms' in params"
		}
	case strategy.KindSalaryByCurrency:
		if !hasStringParam(params, "key_template") {
			return false, "strategy 'salary_by_currency' requires 'key_template' in params"
		}
		if !hasStringParam(params, "default_currency") {
			return false, "strategy 'salary_by_currency' requires 'default_currency' in params"
		}
	}
	return true, ""
}

func hasStringParam(params map[string]any, name string) bool {
	raw, ok := params[name]
	if !ok {
		return false
	}
	s, ok := raw.(string)
	return ok && s != ""
}
