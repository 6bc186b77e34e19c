package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/normalize"
	"github.com/jonathan/apply-agent/internal/profile"
	"github.com/jonathan/apply-agent/internal/strategy"
)

var salaryQuestionRx = regexp.MustCompile(`(?i)(salary|compensation|зарплата)`)

// LearningConfig controls the automatic rule-learning pipeline.
type LearningConfig struct {
	Enabled             bool
	AutoLearn           bool
	ConfidenceThreshold float64
	PatternValidation   bool
	DuplicateCheck      bool
}

// DefaultLearningConfig returns the learning defaults: everything on, with
// a 0.85 confidence gate.
func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		Enabled:             true,
		AutoLearn:           true,
		ConfidenceThreshold: 0.85,
		PatternValidation:   true,
		DuplicateCheck:      true,
	}
}

// Request describes one form field to decide.
type Request struct {
	Question   string
	Kind       field.Kind
	Options    []string
	Site       string
	FormKind   string
	Locale     string
	Required   bool
	JobContext string
}

// Engine is the rules-first decision engine. It answers fields from stored
// rules, falls back to built-in heuristics, and delegates the rest to a
// reasoning backend, learning new rules from its answers.
type Engine struct {
	profile   *profile.Candidate
	store     *Store
	n         *normalize.Normalizer
	delegate  delegate.Delegate
	learning  LearningConfig
	validator *SuggestionValidator
	logger    *slog.Logger

	// textBioHeuristic fills free text fields from the profile bio when no
	// rule or delegate answer exists. Off unless explicitly enabled.
	textBioHeuristic bool

	// learners runs rule-learning tasks serialized so the store never sees
	// concurrent writers. Learning must never delay a returned decision.
	learners *errgroup.Group
	// pending counts scheduled learning tasks for Wait.
	pending sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithTextBioHeuristic enables the text-field bio fallback.
func WithTextBioHeuristic(enabled bool) Option {
	return func(e *Engine) { e.textBioHeuristic = enabled }
}

// NewEngine creates a decision engine. delegate may be nil; unresolved
// fields then stay unanswered.
func NewEngine(p *profile.Candidate, store *Store, n *normalize.Normalizer, d delegate.Delegate, learning LearningConfig, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = normalize.NewDefault()
	}
	learners := &errgroup.Group{}
	learners.SetLimit(1)

	e := &Engine{
		profile:   p,
		store:     store,
		n:         n,
		delegate:  d,
		learning:  learning,
		validator: NewSuggestionValidator(logger),
		logger:    logger,
		learners:  learners,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide resolves a value for one form field. It never returns an error:
// every internal failure degrades to the next stage, and nil means the
// field stays unanswered. Rule lookup comes first, then heuristics, then
// the delegate.
func (e *Engine) Decide(ctx context.Context, req Request) any {
	if req.Site == "" {
		req.Site = "*"
	}
	if req.FormKind == "" {
		req.FormKind = "job_apply"
	}
	if req.Locale == "" {
		req.Locale = "en"
	}

	sig, err := field.Build(req.Kind, req.Question, req.Options, req.Site, req.FormKind, req.Locale, e.n)
	if err != nil {
		e.logger.Warn("cannot build field signature", "error", err)
		return nil
	}
	e.logger.Debug("question normalized", "question", req.Question, "q_norm", sig.QuestionNorm)

	ruleFailed := false
	if rule := e.store.Find(sig); rule != nil {
		if value, ok := e.executeRule(rule, sig, req); ok {
			e.logger.Info("rule decision", "rule_id", rule.ID, "value", value)
			return value
		}
		// A matching rule that could not produce a valid value falls
		// through, but the field must not learn a second rule on top of
		// the broken one.
		ruleFailed = true
	}

	if value := e.applyHeuristics(sig.QuestionNorm, req); value != nil {
		e.logger.Info("heuristic decision", "value", value)
		return value
	}

	if e.delegate == nil {
		e.logger.Warn("no decision could be made", "question", sig.QuestionNorm)
		return nil
	}
	return e.delegateDecision(ctx, sig, req, ruleFailed)
}

// executeRule builds and runs a rule's strategy, validating the result
// against the field. The bool return reports whether a usable value came
// out.
func (e *Engine) executeRule(rule *Rule, sig field.Signature, req Request) (any, bool) {
	def := rule.Strategy
	def.Params = e.substituteCaptures(rule.Signature.QPattern, sig.QuestionNorm, def.Params)

	strat, err := strategy.New(def, e.n, e.logger)
	if err != nil {
		e.logger.Warn("rule strategy invalid", "rule_id", rule.ID, "error", err)
		return nil, false
	}
	value, err := strat.Resolve(e.profile, strategy.Field{Question: req.Question, Options: req.Options})
	if err != nil {
		e.logger.Warn("rule strategy failed", "rule_id", rule.ID, "error", err)
		return nil, false
	}

	valid, ok := e.valueValidForField(value, req.Kind, req.Options)
	if !ok {
		e.logger.Warn("rule produced invalid value for field",
			"rule_id", rule.ID, "value", value, "field_kind", req.Kind)
		return nil, false
	}
	return valid, true
}

// substituteCaptures resolves named capture groups from the rule's pattern
// against the normalized question and substitutes them into string params
// holding "{name}" placeholders. A pattern like "(?P<skill>python|java)"
// with params.key "years_experience.{skill}" resolves the key at runtime.
func (e *Engine) substituteCaptures(qPattern, qNorm string, params map[string]any) map[string]any {
	if qPattern == "" || len(params) == 0 {
		return params
	}
	rx, err := regexp.Compile("(?i)" + qPattern)
	if err != nil {
		return params
	}
	match := rx.FindStringSubmatch(qNorm)
	if match == nil {
		return params
	}

	groups := make(map[string]string)
	for i, name := range rx.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	if len(groups) == 0 {
		return params
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		s, isString := v.(string)
		if !isString || !strings.Contains(s, "{") {
			out[k] = v
			continue
		}
		for name, captured := range groups {
			s = strings.ReplaceAll(s, "{"+name+"}", captured)
		}
		out[k] = s
	}
	return out
}

// valueValidForField checks a candidate value against the field's shape and
// canonicalizes it: option-backed fields get the presented option text,
// number fields an int. The bool return is false when the value cannot fill
// the field.
func (e *Engine) valueValidForField(value any, kind field.Kind, options []string) (any, bool) {
	if value == nil {
		return nil, false
	}

	switch kind {
	case field.KindRadio, field.KindSelect, field.KindCombobox, field.KindMultiselect:
		text, ok := valueAsText(value)
		if !ok {
			return nil, false
		}
		if len(options) == 0 {
			return text, true
		}
		if opt, ok := e.matchOption(text, options); ok {
			return opt, true
		}
		return nil, false
	case field.KindCheckbox:
		if b, ok := value.(bool); ok {
			return b, true
		}
		text, ok := valueAsText(value)
		if !ok {
			return nil, false
		}
		switch e.n.MapToCanonical(text) {
		case "YES":
			return true, true
		case "NO":
			return false, true
		}
		return nil, false
	case field.KindNumber:
		num, ok := CoerceInt(value)
		if !ok {
			return nil, false
		}
		return num, true
	case field.KindText:
		text, ok := valueAsText(value)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, false
		}
		return text, true
	}
	return nil, false
}

// matchOption resolves a value to one of the presented options: normalized
// equality, then canonical equality, then substring containment with a
// two-character floor.
func (e *Engine) matchOption(value string, options []string) (string, bool) {
	valueNorm := e.n.Normalize(value)
	if valueNorm == "" {
		return "", false
	}

	for _, opt := range options {
		if e.n.Normalize(opt) == valueNorm {
			return opt, true
		}
	}
	valueCanon := e.n.MapToCanonical(value)
	for _, opt := range options {
		if e.n.MapToCanonical(opt) == valueCanon {
			return opt, true
		}
	}
	if len([]rune(valueNorm)) >= 2 {
		for _, opt := range options {
			optNorm := e.n.Normalize(opt)
			if strings.Contains(optNorm, valueNorm) || strings.Contains(valueNorm, optNorm) {
				return opt, true
			}
		}
	}
	return "", false
}

func valueAsText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		if v {
			return "yes", true
		}
		return "no", true
	case int, int64, float64:
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

// applyHeuristics answers common question shapes without a rule: skill
// checkboxes from years of experience, and salary questions from the
// profile's expectation for the detected currency.
func (e *Engine) applyHeuristics(qNorm string, req Request) any {
	if req.Kind == field.KindCheckbox && e.skillCheckboxHit(qNorm) {
		return true
	}

	if salaryQuestionRx.MatchString(qNorm) {
		currency := e.n.DetectCurrency(qNorm, req.Question)
		if currency == "" {
			currency = "nis"
		}
		key := "salary_expectation.monthly_net_" + currency
		if v, ok := e.profile.Get(key); ok {
			if num, numOk := CoerceInt(v); numOk && num > 0 {
				return num
			}
		}
	}

	if req.Kind == field.KindText && e.textBioHeuristic {
		bio := e.profile.ShortBioEN
		if bio == "" {
			bio = e.profile.ShortBioRU
		}
		if bio != "" {
			return truncateRunes(bio, 200)
		}
	}

	return nil
}

// skillCheckboxHit reports whether a checkbox label names a skill the
// profile has positive years for. The label rarely is the bare skill name
// ("Do you know Python?"), so after the whole-label lookup each token goes
// through the synonym table, and multi-word skill keys are matched by
// word-bounded containment.
func (e *Engine) skillCheckboxHit(qNorm string) bool {
	if e.hasSkillYears(e.n.MapSkillToCanonical(qNorm)) {
		return true
	}
	for _, token := range strings.Fields(qNorm) {
		if e.hasSkillYears(e.n.MapSkillToCanonical(token)) {
			return true
		}
	}
	padded := " " + qNorm + " "
	for skill, years := range e.profile.YearsExperience {
		if years <= 0 {
			continue
		}
		skillNorm := e.n.Normalize(skill)
		if skillNorm != "" && strings.Contains(padded, " "+skillNorm+" ") {
			return true
		}
	}
	return false
}

func (e *Engine) hasSkillYears(skill string) bool {
	years, ok := e.profile.YearsExperience[skill]
	return ok && years > 0
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// delegateDecision asks the reasoning delegate for an answer and, when the
// field had no (working) rule, schedules learning from the result.
func (e *Engine) delegateDecision(ctx context.Context, sig field.Signature, req Request, ruleFailed bool) any {
	info := delegate.FieldInfo{
		Kind:     req.Kind,
		Question: req.Question,
		Options:  req.Options,
		Required: req.Required,
	}

	e.logger.Info("delegating to reasoning backend",
		"question", req.Question, "q_norm", sig.QuestionNorm, "field_kind", req.Kind)

	decision, err := e.delegate.Decide(ctx, info, e.profile, req.JobContext)
	if err != nil {
		e.logger.Warn("delegate failed", "error", err)
		return nil
	}
	if decision.Skip() {
		e.logger.Info("delegate skipped field", "question", sig.QuestionNorm)
		return nil
	}

	e.logger.Info("delegate decision",
		"value", decision.Value, "confidence", decision.Confidence)

	if e.learning.Enabled && e.learning.AutoLearn && !ruleFailed {
		e.scheduleLearning(ctx, sig, info, req.JobContext, decision)
	}
	return decision.Value
}

// scheduleLearning runs the learning pipeline in the background so the
// decision is returned immediately. The task survives cancellation of the
// request context. The group's limit makes Go block while a learner is
// still running, so the hand-off happens on its own goroutine and Decide
// never waits on an in-flight learning task.
func (e *Engine) scheduleLearning(ctx context.Context, sig field.Signature, info delegate.FieldInfo, jobContext string, decision *delegate.Decision) {
	bg := context.WithoutCancel(ctx)
	e.pending.Add(1)
	go func() {
		e.learners.Go(func() error {
			defer e.pending.Done()
			e.learnRule(bg, sig, info, jobContext, decision)
			return nil
		})
	}()
}

// Wait blocks until all scheduled learning tasks finish.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// learnRule validates and persists a rule suggestion for a field the
// delegate just answered. Every rejection is logged with its reason and
// never affects the decision already returned.
func (e *Engine) learnRule(ctx context.Context, sig field.Signature, info delegate.FieldInfo, jobContext string, decision *delegate.Decision) {
	suggestion := e.obtainSuggestion(ctx, info, jobContext, decision)
	if suggestion == nil {
		e.logger.Debug("no rule suggestion to learn", "question", sig.QuestionNorm)
		return
	}

	confidence := suggestion.Confidence
	if confidence == 0 {
		confidence = decision.Confidence
	}

	threshold := e.learning.ConfidenceThreshold
	if suggestion.Strategy.Kind == strategy.KindLiteral {
		threshold = max(0.6, threshold-0.15)
	}
	if confidence < threshold {
		e.logger.Warn("rule suggestion rejected: confidence below threshold",
			"confidence", confidence, "threshold", threshold, "pattern", suggestion.QPattern)
		return
	}

	if e.learning.PatternValidation {
		if ok, reason := e.validator.Validate(suggestion); !ok {
			e.logger.Warn("rule suggestion rejected", "reason", reason, "pattern", suggestion.QPattern)
			return
		}
	}

	if e.learning.DuplicateCheck && e.store.IsDuplicateRule(sig, suggestion.QPattern) {
		e.logger.Info("duplicate rule suggestion skipped", "pattern", suggestion.QPattern)
		return
	}

	rule, err := e.store.AddLLMRule(sig, suggestion, confidence)
	if err != nil {
		e.logger.Error("failed to persist learned rule", "error", err)
		return
	}
	e.logger.Info("new rule learned",
		"rule_id", rule.ID, "pattern", suggestion.QPattern, "confidence", confidence)
}

// obtainSuggestion prefers a dedicated rule-generation call, falling back
// to a suggestion embedded in the decision.
func (e *Engine) obtainSuggestion(ctx context.Context, info delegate.FieldInfo, jobContext string, decision *delegate.Decision) *delegate.RuleSuggestion {
	suggestion, err := e.delegate.GenerateRule(ctx, info, decision.Value, e.profile, jobContext)
	if err != nil {
		e.logger.Debug("rule generation failed, using embedded suggestion", "error", err)
	} else if suggestion != nil && suggestion.QPattern != "" {
		return suggestion
	}
	return decision.SuggestRule
}

// CoerceInt converts a decided value to an int, reporting failure instead
// of guessing.
func CoerceInt(v any) (int, bool) {
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

// CoerceNumber converts a decided value to the int typed into a number
// field, defaulting to 0.
func CoerceNumber(v any) int {
	if n, ok := CoerceInt(v); ok {
		return n
	}
	return 0
}

// CoerceText converts a decided value to the string typed into a text
// field, defaulting to "N/A".
func CoerceText(v any) string {
	switch s := v.(type) {
	case nil:
		return "N/A"
	case string:
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}
