package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/field"
)

// Store is the persistent rule store. All rules live in one JSON or YAML
// file; every mutation is written through to disk immediately.
type Store struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file File
}

// Open loads the rule store at path. A missing file is initialized with an
// empty structure and written out; an unreadable or malformed file is an
// error, never silently reset.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger,
		file:   File{SchemaVersion: SchemaVersion, Rules: []Rule{}},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.saveLocked(); err != nil {
			return nil, fmt.Errorf("failed to initialize rule store %s: %w", path, err)
		}
		logger.Info("initialized empty rule store", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rule store %s: %w", path, err)
	}

	var doc map[string]any
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("corrupt rule store %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("corrupt rule store %s: %w", path, err)
		}
	}
	if err := validateRuleFile(doc); err != nil {
		return nil, fmt.Errorf("corrupt rule store %s: %w", path, err)
	}

	// Re-decode through JSON so both formats land in the same structs.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule store %s: %w", path, err)
	}
	if err := json.Unmarshal(encoded, &s.file); err != nil {
		return nil, fmt.Errorf("corrupt rule store %s: %w", path, err)
	}
	if s.file.SchemaVersion == "" {
		s.file.SchemaVersion = SchemaVersion
	}
	if s.file.Rules == nil {
		s.file.Rules = []Rule{}
	}

	logger.Debug("rule store loaded", "path", path, "rules", len(s.file.Rules))
	return s, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Find returns the first rule matching the field signature, or nil. Matching
// checks, in order: site scope (exact or "*"), field kind, case-insensitive
// regex search of q_pattern against the normalized question, and options
// fingerprint equality when the rule carries one. A rule with an invalid
// stored regex is skipped, never fatal.
func (s *Store) Find(sig field.Signature) *Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.file.Rules {
		rule := &s.file.Rules[i]

		site := rule.Scope.Site
		if site != "" && site != "*" && site != sig.Site {
			continue
		}
		if rule.Signature.FieldKind != string(sig.Kind) {
			continue
		}

		pattern := strings.TrimSpace(rule.Signature.QPattern)
		if pattern != "" {
			rx, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				s.logger.Warn("invalid regex in stored rule, skipping",
					"rule_id", rule.ID, "pattern", pattern, "error", err)
				continue
			}
			if !rx.MatchString(sig.QuestionNorm) {
				continue
			}
		}

		if fp := rule.Signature.OptionsFingerprint; fp != "" && fp != sig.OptionsFingerprint {
			continue
		}

		rule.Meta.Hits++
		rule.Meta.LastSeen = time.Now().UTC().Format(time.RFC3339)
		s.logger.Info("rule matched",
			"rule_id", rule.ID, "field_kind", sig.Kind, "question", sig.QuestionNorm)

		matched := *rule
		return &matched
	}

	s.logger.Debug("no rule matched",
		"field_kind", sig.Kind, "question", sig.QuestionNorm)
	return nil
}

// IsDuplicateRule reports whether a rule with the same field kind and a
// case-insensitively equal q_pattern already exists.
func (s *Store) IsDuplicateRule(sig field.Signature, qPattern string) bool {
	newPattern := strings.ToLower(strings.TrimSpace(qPattern))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.file.Rules {
		rule := &s.file.Rules[i]
		if rule.Signature.FieldKind != string(sig.Kind) {
			continue
		}
		if strings.ToLower(strings.TrimSpace(rule.Signature.QPattern)) == newPattern {
			return true
		}
	}
	return false
}

// AddLLMRule appends a learned rule built from a delegate suggestion and
// flushes the store to disk.
func (s *Store) AddLLMRule(sig field.Signature, suggestion *delegate.RuleSuggestion, confidence float64) (Rule, error) {
	rule := Rule{
		ID: "rls_" + uuid.NewString(),
		Scope: Scope{
			Site:     sig.Site,
			FormKind: sig.FormKind,
			Locales:  []string{sig.Locale},
		},
		Signature: SignaturePattern{
			FieldKind:          string(sig.Kind),
			QPattern:           suggestion.QPattern,
			OptionsFingerprint: sig.OptionsFingerprint,
		},
		Strategy:    suggestion.Strategy,
		Constraints: Constraints{Required: true},
		Meta: Meta{
			Source:     "llm",
			Confidence: confidence,
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			Hits:       0,
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Rules = append(s.file.Rules, rule)
	if err := s.saveLocked(); err != nil {
		s.file.Rules = s.file.Rules[:len(s.file.Rules)-1]
		return Rule{}, fmt.Errorf("failed to persist learned rule: %w", err)
	}

	s.logger.Info("learned rule added",
		"rule_id", rule.ID, "pattern", suggestion.QPattern, "total_rules", len(s.file.Rules))
	return rule, nil
}

// Save flushes the store to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create rule store directory: %w", err)
		}
	}

	var data []byte
	var err error
	if isYAML(s.path) {
		data, err = yaml.Marshal(s.file)
	} else {
		data, err = json.MarshalIndent(s.file, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode rule store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rule store %s: %w", s.path, err)
	}
	return nil
}

// Rules returns a copy of all stored rules in file order.
func (s *Store) Rules() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Rule, len(s.file.Rules))
	copy(out, s.file.Rules)
	return out
}

// Len returns the number of stored rules.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.file.Rules)
}
