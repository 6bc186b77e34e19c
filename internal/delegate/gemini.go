package delegate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/apply-agent/internal/profile"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Gemini is a Delegate backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini delegate. model may be empty to use
// DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, logger: logger}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Decide asks the model for a decision on the field and validates the
// response before returning it.
func (g *Gemini) Decide(ctx context.Context, f FieldInfo, p *profile.Candidate, jobContext string) (*Decision, error) {
	prompt := buildDecidePrompt(f, p.Summary(), jobContext)

	raw, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to parse delegate decision: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("delegate returned invalid decision: %w", err)
	}

	g.logger.Debug("delegate decision",
		"question", f.Question,
		"decision", d.Decision,
		"confidence", d.Confidence)
	return &d, nil
}

// GenerateRule asks the model for a reusable rule matching a value it
// already produced.
func (g *Gemini) GenerateRule(ctx context.Context, f FieldInfo, value any, p *profile.Candidate, jobContext string) (*RuleSuggestion, error) {
	prompt := buildGenerateRulePrompt(f, value, p.Summary(), jobContext)

	raw, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var s RuleSuggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to parse rule suggestion: %w", err)
	}
	return &s, nil
}

func (g *Gemini) generateJSON(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	return cleanJSONBlock(text), nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
