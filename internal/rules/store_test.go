package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/strategy"
)

func testSignature(kind field.Kind, qNorm string) field.Signature {
	return field.Signature{
		Kind:         kind,
		QuestionNorm: qNorm,
		Site:         "linkedin",
		FormKind:     "job_apply",
		Locale:       "en",
	}
}

func writeRuleFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleRuleFile = `{
  "schema_version": "1.0",
  "rules": [
    {
      "id": "rls_authorized",
      "scope": {"site": "*", "form_kind": "job_apply", "locale": ["en"]},
      "signature": {"field_kind": "radio", "q_pattern": "authorized to work"},
      "strategy": {"kind": "one_of_options", "params": {"preferred": ["yes"]}},
      "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
    },
    {
      "id": "rls_notice",
      "scope": {"site": "linkedin", "form_kind": "job_apply", "locale": ["en"]},
      "signature": {"field_kind": "number", "q_pattern": "notice period"},
      "strategy": {"kind": "numeric_from_profile", "params": {"key": "notice_period_days"}},
      "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
    }
  ]
}`

func TestOpen_MissingFileInitializesEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")

	s, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	// The empty structure is written out immediately.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version": "1.0"`)
}

func TestOpen_CorruptFileIsFatal(t *testing.T) {
	path := writeRuleFile(t, "rules.json", `{"schema_version": "1.0", "rules": [`)

	_, err := Open(path, nil)
	assert.Error(t, err)
}

func TestOpen_SchemaViolationIsFatal(t *testing.T) {
	// A rule without id/signature/strategy must not load.
	path := writeRuleFile(t, "rules.json", `{"schema_version": "1.0", "rules": [{"id": "x"}]}`)

	_, err := Open(path, nil)
	assert.Error(t, err)
}

func TestOpen_LoadsRules(t *testing.T) {
	path := writeRuleFile(t, "rules.json", sampleRuleFile)

	s, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestOpen_LoadsYAML(t *testing.T) {
	path := writeRuleFile(t, "rules.yaml", `
schema_version: "1.0"
rules:
  - id: rls_yaml
    scope: {site: "*", form_kind: job_apply}
    signature: {field_kind: text, q_pattern: phone}
    strategy: {kind: profile_key, params: {key: phone}}
    meta: {source: manual, confidence: 1.0, created_at: "2026-01-01T00:00:00Z", hits: 0}
`)

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "rls_yaml", s.Rules()[0].ID)
}

func TestFind_MatchesByKindAndPattern(t *testing.T) {
	s, err := Open(writeRuleFile(t, "rules.json", sampleRuleFile), nil)
	require.NoError(t, err)

	rule := s.Find(testSignature(field.KindRadio, "are you authorized to work in israel"))
	require.NotNil(t, rule)
	assert.Equal(t, "rls_authorized", rule.ID)
}

func TestFind_NoMatchForDifferentKind(t *testing.T) {
	s, err := Open(writeRuleFile(t, "rules.json", sampleRuleFile), nil)
	require.NoError(t, err)

	assert.Nil(t, s.Find(testSignature(field.KindText, "are you authorized to work")))
}

func TestFind_SiteScope(t *testing.T) {
	s, err := Open(writeRuleFile(t, "rules.json", sampleRuleFile), nil)
	require.NoError(t, err)

	// rls_notice is scoped to linkedin only.
	sig := testSignature(field.KindNumber, "what is your notice period")
	require.NotNil(t, s.Find(sig))

	sig.Site = "otherboard"
	assert.Nil(t, s.Find(sig))

	// The wildcard rule matches any site.
	wild := testSignature(field.KindRadio, "authorized to work")
	wild.Site = "otherboard"
	assert.NotNil(t, s.Find(wild))
}

func TestFind_CaseInsensitivePattern(t *testing.T) {
	s, err := Open(writeRuleFile(t, "rules.json", sampleRuleFile), nil)
	require.NoError(t, err)

	assert.NotNil(t, s.Find(testSignature(field.KindRadio, "AUTHORIZED TO WORK here")))
}

func TestFind_OptionsFingerprintMustMatchWhenPresent(t *testing.T) {
	path := writeRuleFile(t, "rules.json", `{
  "schema_version": "1.0",
  "rules": [{
    "id": "rls_fp",
    "scope": {"site": "*"},
    "signature": {"field_kind": "radio", "q_pattern": "relocate", "options_fingerprint": "sha1:abc"},
    "strategy": {"kind": "one_of_options", "params": {"preferred": ["no"]}},
    "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
  }]
}`)
	s, err := Open(path, nil)
	require.NoError(t, err)

	sig := testSignature(field.KindRadio, "willing to relocate")
	sig.OptionsFingerprint = "sha1:other"
	assert.Nil(t, s.Find(sig))

	sig.OptionsFingerprint = "sha1:abc"
	assert.NotNil(t, s.Find(sig))
}

func TestFind_InvalidStoredRegexIsSkipped(t *testing.T) {
	path := writeRuleFile(t, "rules.json", `{
  "schema_version": "1.0",
  "rules": [
    {
      "id": "rls_broken",
      "scope": {"site": "*"},
      "signature": {"field_kind": "radio", "q_pattern": "(unclosed"},
      "strategy": {"kind": "one_of_options", "params": {"preferred": ["yes"]}},
      "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
    },
    {
      "id": "rls_good",
      "scope": {"site": "*"},
      "signature": {"field_kind": "radio", "q_pattern": "unclosed"},
      "strategy": {"kind": "one_of_options", "params": {"preferred": ["yes"]}},
      "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
    }
  ]
}`)
	s, err := Open(path, nil)
	require.NoError(t, err)

	rule := s.Find(testSignature(field.KindRadio, "something unclosed here"))
	require.NotNil(t, rule)
	assert.Equal(t, "rls_good", rule.ID)
}

func TestFind_FirstMatchWins(t *testing.T) {
	path := writeRuleFile(t, "rules.json", `{
  "schema_version": "1.0",
  "rules": [
    {
      "id": "rls_first",
      "scope": {"site": "*"},
      "signature": {"field_kind": "text", "q_pattern": "phone"},
      "strategy": {"kind": "profile_key", "params": {"key": "phone"}},
      "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
    },
    {
      "id": "rls_second",
      "scope": {"site": "*"},
      "signature": {"field_kind": "text", "q_pattern": "phone number"},
      "strategy": {"kind": "profile_key", "params": {"key": "phone"}},
      "meta": {"source": "manual", "confidence": 1.0, "created_at": "2026-01-01T00:00:00Z", "hits": 0}
    }
  ]
}`)
	s, err := Open(path, nil)
	require.NoError(t, err)

	rule := s.Find(testSignature(field.KindText, "phone number"))
	require.NotNil(t, rule)
	assert.Equal(t, "rls_first", rule.ID)
}

func TestFind_BumpsHitsAndLastSeen(t *testing.T) {
	s, err := Open(writeRuleFile(t, "rules.json", sampleRuleFile), nil)
	require.NoError(t, err)

	sig := testSignature(field.KindRadio, "authorized to work")
	s.Find(sig)
	s.Find(sig)

	rule := s.Rules()[0]
	assert.Equal(t, 2, rule.Meta.Hits)
	assert.NotEmpty(t, rule.Meta.LastSeen)
}

func TestIsDuplicateRule_CaseInsensitive(t *testing.T) {
	s, err := Open(writeRuleFile(t, "rules.json", sampleRuleFile), nil)
	require.NoError(t, err)

	sig := testSignature(field.KindRadio, "irrelevant")
	assert.True(t, s.IsDuplicateRule(sig, "AUTHORIZED TO WORK"))
	assert.True(t, s.IsDuplicateRule(sig, "  authorized to work  "))
	assert.False(t, s.IsDuplicateRule(sig, "different pattern"))

	// Same pattern under a different field kind is not a duplicate.
	assert.False(t, s.IsDuplicateRule(testSignature(field.KindText, "x"), "authorized to work"))
}

func TestAddLLMRule_PersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	s, err := Open(path, nil)
	require.NoError(t, err)

	sig := testSignature(field.KindRadio, "willing to relocate")
	sig.OptionsFingerprint = "sha1:abc"
	suggestion := &delegate.RuleSuggestion{
		QPattern: "relocat",
		Strategy: strategy.Definition{
			Kind:   strategy.KindOneOfOptions,
			Params: map[string]any{"preferred": []any{"no"}},
		},
	}

	rule, err := s.AddLLMRule(sig, suggestion, 0.9)
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "llm", rule.Meta.Source)
	assert.Equal(t, 0.9, rule.Meta.Confidence)
	assert.Equal(t, "sha1:abc", rule.Signature.OptionsFingerprint)

	// A fresh Open sees the learned rule.
	reloaded, err := Open(path, nil)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())
	assert.Equal(t, rule.ID, reloaded.Rules()[0].ID)
}

func TestStore_RoundTripPreservesOrderAndIDs(t *testing.T) {
	path := writeRuleFile(t, "rules.json", sampleRuleFile)
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save())

	reloaded, err := Open(path, nil)
	require.NoError(t, err)

	original := s.Rules()
	roundTripped := reloaded.Rules()
	require.Len(t, roundTripped, len(original))
	for i := range original {
		assert.Equal(t, original[i].ID, roundTripped[i].ID)
		assert.Equal(t, original[i].Signature, roundTripped[i].Signature)
		assert.Equal(t, original[i].Strategy.Kind, roundTripped[i].Strategy.Kind)
	}
}
