// Package strategy resolves form-field answers from a candidate profile.
// Each strategy kind encodes one way of turning profile data into a value
// for a field.
package strategy

import (
	"fmt"
	"log/slog"

	"github.com/jonathan/apply-agent/internal/normalize"
	"github.com/jonathan/apply-agent/internal/profile"
)

// Strategy kinds. The set is closed; an unknown kind is a validation error,
// never a fallthrough.
const (
	KindLiteral                 = "literal"
	KindProfileKey              = "profile_key"
	KindNumericFromProfile      = "numeric_from_profile"
	KindOneOfOptions            = "one_of_options"
	KindOneOfOptionsFromProfile = "one_of_options_from_profile"
	KindSalaryByCurrency        = "salary_by_currency"
)

// Kinds lists every known strategy kind.
func Kinds() []string {
	return []string{
		KindLiteral,
		KindProfileKey,
		KindNumericFromProfile,
		KindOneOfOptions,
		KindOneOfOptionsFromProfile,
		KindSalaryByCurrency,
	}
}

// KnownKind reports whether kind names a strategy this package implements.
func KnownKind(kind string) bool {
	switch kind {
	case KindLiteral, KindProfileKey, KindNumericFromProfile,
		KindOneOfOptions, KindOneOfOptionsFromProfile, KindSalaryByCurrency:
		return true
	}
	return false
}

// Definition is the serializable form of a strategy, as stored inside a
// rule.
type Definition struct {
	Kind   string         `json:"kind" yaml:"kind"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Field carries the parts of a form field a strategy may consult.
type Field struct {
	// Question is the raw (unnormalized) question text.
	Question string
	// Options are the presented option texts, empty for free-form fields.
	Options []string
}

// Strategy resolves a value for a field from the candidate profile. A nil
// value or an error both mean the strategy could not produce an answer; the
// error carries the reason for logging.
type Strategy interface {
	Resolve(p *profile.Candidate, f Field) (any, error)
}

// New builds a Strategy from its definition. Unknown kinds and missing
// required params are errors.
func New(def Definition, n *normalize.Normalizer, logger *slog.Logger) (Strategy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch def.Kind {
	case KindLiteral:
		value, ok := def.Params["value"]
		if !ok {
			return nil, fmt.Errorf("strategy %s requires param %q", def.Kind, "value")
		}
		return &literal{value: value}, nil
	case KindProfileKey:
		key, err := stringParam(def, "key")
		if err != nil {
			return nil, err
		}
		return &profileKey{key: key}, nil
	case KindNumericFromProfile:
		key, err := stringParam(def, "key")
		if err != nil {
			return nil, err
		}
		return &numericFromProfile{key: key}, nil
	case KindOneOfOptions:
		preferred, err := optionalStringSliceParam(def, "preferred")
		if err != nil {
			return nil, err
		}
		synonyms, err := optionalSynonymsParam(def, "synonyms")
		if err != nil {
			return nil, err
		}
		return &oneOfOptions{preferred: preferred, synonyms: synonyms, n: n}, nil
	case KindOneOfOptionsFromProfile:
		key, err := stringParam(def, "key")
		if err != nil {
			return nil, err
		}
		synonyms, err := optionalSynonymsParam(def, "synonyms")
		if err != nil {
			return nil, err
		}
		return &oneOfOptionsFromProfile{key: key, synonyms: synonyms, n: n}, nil
	case KindSalaryByCurrency:
		tmpl, err := stringParam(def, "key_template")
		if err != nil {
			return nil, err
		}
		defaultCurrency, err := stringParam(def, "default_currency")
		if err != nil {
			return nil, err
		}
		return &salaryByCurrency{keyTemplate: tmpl, defaultCurrency: defaultCurrency, n: n, logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown strategy kind %q", def.Kind)
}

func stringParam(def Definition, name string) (string, error) {
	v, ok := optionalStringParam(def, name)
	if !ok || v == "" {
		return "", fmt.Errorf("strategy %s requires string param %q", def.Kind, name)
	}
	return v, nil
}

func optionalStringParam(def Definition, name string) (string, bool) {
	raw, ok := def.Params[name]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func optionalStringSliceParam(def Definition, name string) ([]string, error) {
	raw, ok := def.Params[name]
	if !ok {
		return nil, nil
	}
	out, ok := StringList(raw)
	if !ok {
		return nil, fmt.Errorf("strategy %s param %q must be a string list", def.Kind, name)
	}
	return out, nil
}

func optionalSynonymsParam(def Definition, name string) (map[string][]string, error) {
	raw, ok := def.Params[name]
	if !ok {
		return nil, nil
	}
	out, ok := SynonymMap(raw)
	if !ok {
		return nil, fmt.Errorf("strategy %s param %q must map labels to alias lists", def.Kind, name)
	}
	return out, nil
}

// StringList coerces a decoded param value into a string slice. JSON and
// YAML decoding produce []any; rules built in code may carry []string.
func StringList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// SynonymMap coerces a decoded param value into a label-to-aliases table.
func SynonymMap(raw any) (map[string][]string, bool) {
	switch v := raw.(type) {
	case map[string][]string:
		return v, true
	case map[string]any:
		out := make(map[string][]string, len(v))
		for label, aliases := range v {
			list, ok := StringList(aliases)
			if !ok {
				return nil, false
			}
			out[label] = list
		}
		return out, true
	}
	return nil, false
}
