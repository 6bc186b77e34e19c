package strategy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/apply-agent/internal/normalize"
	"github.com/jonathan/apply-agent/internal/profile"
)

// literal returns a fixed value regardless of the profile or field.
type literal struct {
	value any
}

func (s *literal) Resolve(_ *profile.Candidate, _ Field) (any, error) {
	return s.value, nil
}

// profileKey returns the profile value at a dotted key.
type profileKey struct {
	key string
}

func (s *profileKey) Resolve(p *profile.Candidate, _ Field) (any, error) {
	v, ok := p.Get(s.key)
	if !ok || v == nil {
		return nil, fmt.Errorf("profile key %q not found", s.key)
	}
	return v, nil
}

// numericFromProfile returns the profile value at a dotted key as an int.
// Absent or non-numeric values resolve to nothing, never to zero.
type numericFromProfile struct {
	key string
}

func (s *numericFromProfile) Resolve(p *profile.Candidate, _ Field) (any, error) {
	v, ok := p.Get(s.key)
	if !ok || v == nil {
		return nil, fmt.Errorf("profile key %q not found", s.key)
	}
	num, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("profile key %q is not numeric (%T)", s.key, v)
	}
	return num, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// oneOfOptions picks one of the presented options by a preferred-values
// list or a label-to-aliases synonym table. With neither param it falls
// back to the first option.
type oneOfOptions struct {
	preferred []string
	synonyms  map[string][]string
	n         *normalize.Normalizer
}

func (s *oneOfOptions) Resolve(_ *profile.Candidate, f Field) (any, error) {
	if len(f.Options) == 0 {
		return nil, fmt.Errorf("field has no options")
	}

	for _, want := range s.preferred {
		wantNorm := s.n.Normalize(want)
		for _, opt := range f.Options {
			optNorm := s.n.Normalize(opt)
			if optNorm == wantNorm {
				return opt, nil
			}
			// Containment with a two-rune floor against spurious matches.
			if len([]rune(wantNorm)) >= 2 &&
				(strings.Contains(optNorm, wantNorm) || strings.Contains(wantNorm, optNorm)) {
				return opt, nil
			}
		}
		if match := s.n.FindBestMatch(want, f.Options, normalize.DefaultMatchThreshold); match != "" {
			return match, nil
		}
	}

	// An option wins by matching a synonym label or any of its aliases.
	for _, opt := range f.Options {
		optNorm := s.n.Normalize(opt)
		for label, aliases := range s.synonyms {
			if s.n.Normalize(label) == optNorm {
				return opt, nil
			}
			for _, alias := range aliases {
				if s.n.Normalize(alias) == optNorm {
					return opt, nil
				}
			}
		}
	}
	for label := range s.synonyms {
		if match := s.n.FindBestMatch(label, f.Options, normalize.DefaultMatchThreshold); match != "" {
			return match, nil
		}
	}

	if len(s.preferred) > 0 || len(s.synonyms) > 0 {
		return nil, fmt.Errorf("no option matched preferred values or synonyms")
	}
	return f.Options[0], nil
}

// oneOfOptionsFromProfile resolves a profile value and matches it against
// the presented options. When a synonym table is given, the profile value
// selects its alias list and only those aliases may match; otherwise the
// value is matched via canonical mapping and fuzzy matching.
type oneOfOptionsFromProfile struct {
	key      string
	synonyms map[string][]string
	n        *normalize.Normalizer
}

func (s *oneOfOptionsFromProfile) Resolve(p *profile.Candidate, f Field) (any, error) {
	if len(f.Options) == 0 {
		return nil, fmt.Errorf("field has no options")
	}
	v, ok := p.Get(s.key)
	if !ok || v == nil {
		return nil, fmt.Errorf("profile key %q not found", s.key)
	}
	want := fmt.Sprintf("%v", v)

	if len(s.synonyms) > 0 {
		aliases := s.aliasesFor(want)
		if len(aliases) == 0 {
			return nil, fmt.Errorf("profile value %q has no synonym entry", want)
		}
		for _, opt := range f.Options {
			optNorm := s.n.Normalize(opt)
			for _, alias := range aliases {
				if s.n.Normalize(alias) == optNorm {
					return opt, nil
				}
			}
		}
		return nil, fmt.Errorf("profile value %q matched no option via its aliases", want)
	}

	wantCanon := s.n.MapToCanonical(want)
	for _, opt := range f.Options {
		if s.n.MapToCanonical(opt) == wantCanon {
			return opt, nil
		}
	}
	if match := s.n.FindBestMatch(want, f.Options, normalize.DefaultMatchThreshold); match != "" {
		return match, nil
	}
	return nil, fmt.Errorf("profile value %q matched no option", want)
}

func (s *oneOfOptionsFromProfile) aliasesFor(value string) []string {
	for label, aliases := range s.synonyms {
		if strings.EqualFold(label, value) {
			return aliases
		}
	}
	return nil
}

// salaryByCurrency detects the currency the question asks about and
// resolves the matching salary expectation from the profile.
type salaryByCurrency struct {
	keyTemplate     string
	defaultCurrency string
	n               *normalize.Normalizer
	logger          *slog.Logger
}

func (s *salaryByCurrency) Resolve(p *profile.Candidate, f Field) (any, error) {
	currency := s.n.DetectCurrency(s.n.Normalize(f.Question), f.Question)
	if currency == "" {
		currency = s.defaultCurrency
		s.logger.Debug("no currency detected in question, using default",
			"default_currency", currency)
	}

	key := strings.ReplaceAll(s.keyTemplate, "{currency}", currency)
	v, ok := p.Get(key)
	if !ok || v == nil {
		return nil, fmt.Errorf("profile key %q not found for currency %q", key, currency)
	}
	num, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("profile key %q is not numeric (%T)", key, v)
	}
	return num, nil
}
