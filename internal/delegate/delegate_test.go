package delegate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/strategy"
)

func TestDecisionValidate_Valid(t *testing.T) {
	tests := []Decision{
		{Decision: ActionSelect, Value: "Yes", Confidence: 0.9},
		{Decision: ActionText, Value: "Tel Aviv", Confidence: 0.5},
		{Decision: ActionNumber, Value: 6, Confidence: 1.0},
		{Decision: ActionCheck, Value: true, Confidence: 0},
		{Decision: ActionSkip, Confidence: 0.3},
	}
	for _, d := range tests {
		assert.NoError(t, d.Validate(), "decision: %s", d.Decision)
	}
}

func TestDecisionValidate_UnknownAction(t *testing.T) {
	d := Decision{Decision: "guess", Value: "x", Confidence: 0.9}
	assert.Error(t, d.Validate())
}

func TestDecisionValidate_ConfidenceOutOfRange(t *testing.T) {
	d := Decision{Decision: ActionText, Value: "x", Confidence: 1.5}
	assert.Error(t, d.Validate())

	d.Confidence = -0.1
	assert.Error(t, d.Validate())
}

func TestDecisionValidate_MissingValue(t *testing.T) {
	d := Decision{Decision: ActionSelect, Confidence: 0.9}
	assert.Error(t, d.Validate())
}

func TestDecisionSkip(t *testing.T) {
	var nilDecision *Decision
	assert.True(t, nilDecision.Skip())
	assert.True(t, (&Decision{Decision: ActionSkip}).Skip())
	assert.False(t, (&Decision{Decision: ActionText, Value: "x"}).Skip())
}

func TestDecision_ParsesFromJSON(t *testing.T) {
	raw := `{
		"decision": "select",
		"value": "Yes",
		"confidence": 0.92,
		"suggest_rule": {
			"q_pattern": "authorized to work",
			"strategy": {"kind": "one_of_options", "params": {"preferred": ["yes"]}},
			"confidence": 0.9
		}
	}`

	var d Decision
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	require.NoError(t, d.Validate())

	assert.Equal(t, "Yes", d.Value)
	require.NotNil(t, d.SuggestRule)
	assert.Equal(t, "authorized to work", d.SuggestRule.QPattern)
	assert.Equal(t, strategy.KindOneOfOptions, d.SuggestRule.Strategy.Kind)
	assert.Equal(t, []any{"yes"}, d.SuggestRule.Strategy.Params["preferred"])
}

func TestCleanJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONBlock(`{"a":1}`))
}

func TestBuildDecidePrompt_IncludesFieldAndOptions(t *testing.T) {
	f := FieldInfo{
		Kind:     field.KindRadio,
		Question: "Are you authorized to work?",
		Options:  []string{"Yes", "No"},
		Required: true,
	}

	prompt := buildDecidePrompt(f, "Phone: 123", "Backend role")

	assert.Contains(t, prompt, "Are you authorized to work?")
	assert.Contains(t, prompt, "Yes | No")
	assert.Contains(t, prompt, "Phone: 123")
	assert.Contains(t, prompt, "Backend role")
	assert.Contains(t, prompt, `"skip"`)
}

func TestBuildGenerateRulePrompt_IncludesAnswer(t *testing.T) {
	f := FieldInfo{Kind: field.KindNumber, Question: "Years of Python?"}

	prompt := buildGenerateRulePrompt(f, 6, "python: 6", "")

	assert.Contains(t, prompt, "Years of Python?")
	assert.Contains(t, prompt, "Answer given: 6")
	assert.True(t, strings.Contains(prompt, "q_pattern"))
}
