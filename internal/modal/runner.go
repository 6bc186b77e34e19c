package modal

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/normalize"
	"github.com/jonathan/apply-agent/internal/rules"
)

var (
	nextButtonRx   = regexp.MustCompile(`(?i)(next|continue|review|proceed|далее|продолжить|обзор|проверить)`)
	submitButtonRx = regexp.MustCompile(`(?i)(submit|send|finish|отправить|подтвердить)`)
)

// DefaultMaxSteps bounds the number of modal steps processed in one run.
const DefaultMaxSteps = 8

// fillOrder is the order field kinds are processed within a step. Radio
// groups and checkboxes first, free text last.
var fillOrder = []field.Kind{
	field.KindRadio,
	field.KindCheckbox,
	field.KindCombobox,
	field.KindSelect,
	field.KindNumber,
	field.KindText,
}

// Decider produces a value for one form field. *rules.Engine satisfies it.
type Decider interface {
	Decide(ctx context.Context, req rules.Request) any
}

// Options configures one flow run.
type Options struct {
	// MaxSteps bounds the loop; 0 means DefaultMaxSteps.
	MaxSteps int
	// Submit clicks the final submit button. When false the run stops in
	// front of it (dry run).
	Submit     bool
	Site       string
	FormKind   string
	Locale     string
	JobContext string
}

// RunResult reports how a flow run ended. The runner never panics its way
// out of a form; every outcome lands here.
type RunResult struct {
	Completed        bool
	Submitted        bool
	StepsProcessed   int
	ValidationErrors []string
	// Reason states why the run ended, for logs and operators.
	Reason string
}

// Runner walks an application modal step by step.
type Runner struct {
	inspector Inspector
	decider   Decider
	n         *normalize.Normalizer
	logger    *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(inspector Inspector, decider Decider, n *normalize.Normalizer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = normalize.NewDefault()
	}
	return &Runner{inspector: inspector, decider: decider, n: n, logger: logger}
}

// Run processes the active modal until it is submitted, disappears, offers
// no way forward, or the step bound is hit.
func (r *Runner) Run(ctx context.Context, opts Options) RunResult {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	r.logger.Info("starting modal flow", "max_steps", maxSteps, "submit", opts.Submit)

	result := RunResult{}

	for step := 0; step < maxSteps; step++ {
		r.logger.Info("processing modal step", "step", step+1, "max_steps", maxSteps)

		if err := r.inspector.WaitReady(ctx); err != nil {
			r.logger.Warn("wait for page ready failed", "error", err)
		}

		dialog, err := r.inspector.ActiveDialog(ctx)
		if err != nil {
			r.logger.Warn("active dialog lookup failed", "error", err)
		}
		if dialog == nil {
			if step == 0 {
				result.Reason = "no active dialog found"
				return result
			}
			result.Completed = true
			result.Reason = "dialog closed"
			return result
		}

		r.fillDialog(ctx, dialog, opts)
		result.StepsProcessed = step + 1

		if errs := r.collectValidationErrors(ctx, dialog); len(errs) > 0 {
			r.logger.Warn("validation errors present", "errors", errs)
			result.ValidationErrors = append(result.ValidationErrors, errs...)
		}

		// A submit button on the current step always wins over next.
		submit, err := r.inspector.FindControl(ctx, dialog, submitButtonRx)
		if err != nil {
			r.logger.Warn("submit button lookup failed", "error", err)
		}
		if submit != nil {
			if !opts.Submit {
				r.logger.Info("dry run: stopping in front of submit", "label", submit.Label)
				result.Completed = true
				result.Reason = "dry run, submit not clicked"
				return result
			}
			if err := r.inspector.Click(ctx, submit); err != nil {
				r.logger.Warn("submit click failed", "error", err)
				result.Reason = "submit click failed"
				return result
			}
			r.awaitTransition(ctx, dialog)
			result.Completed = true
			result.Submitted = true
			result.Reason = "submitted"
			return result
		}

		next, err := r.inspector.FindControl(ctx, dialog, nextButtonRx)
		if err != nil {
			r.logger.Warn("next button lookup failed", "error", err)
		}
		if next == nil {
			result.Reason = "no navigation control found"
			result.ValidationErrors = append(result.ValidationErrors, "navigation control not found")
			return result
		}
		if err := r.inspector.Click(ctx, next); err != nil {
			r.logger.Warn("next click failed", "error", err)
			result.Reason = "next click failed"
			return result
		}
		r.awaitTransition(ctx, dialog)
	}

	r.logger.Warn("max steps reached, aborting", "max_steps", maxSteps)
	result.StepsProcessed = maxSteps
	result.Reason = "max steps reached"
	result.ValidationErrors = append(result.ValidationErrors, "max steps reached")
	return result
}

// awaitTransition waits for the clicked-away dialog to detach; when it
// stays (same dialog re-rendered), it settles on loading indicators
// instead.
func (r *Runner) awaitTransition(ctx context.Context, d *Dialog) {
	if err := r.inspector.WaitForDetach(ctx, d); err != nil {
		r.logger.Debug("dialog did not detach, waiting for settle", "error", err)
		if err := r.inspector.WaitReady(ctx); err != nil {
			r.logger.Warn("wait for settle failed", "error", err)
		}
	}
}

func (r *Runner) fillDialog(ctx context.Context, dialog *Dialog, opts Options) {
	for _, kind := range fillOrder {
		fields, err := r.inspector.Fields(ctx, dialog, kind)
		if err != nil {
			r.logger.Warn("field enumeration failed", "kind", kind, "error", err)
			continue
		}
		for _, f := range fields {
			r.fillField(ctx, f, opts)
		}
	}
}

// fillField decides and applies a value for one field. Failures are logged
// and skipped; one broken field never aborts the flow.
func (r *Runner) fillField(ctx context.Context, f Field, opts Options) {
	switch f.Kind {
	case field.KindRadio:
		r.fillRadio(ctx, f, opts)
	case field.KindCheckbox:
		r.fillCheckbox(ctx, f, opts)
	case field.KindCombobox:
		r.fillCombobox(ctx, f, opts)
	case field.KindSelect:
		r.fillSelect(ctx, f, opts)
	case field.KindNumber:
		r.fillNumber(ctx, f, opts)
	case field.KindText:
		r.fillText(ctx, f, opts)
	}
}

func (r *Runner) decide(ctx context.Context, f Field, opts Options) any {
	return r.decider.Decide(ctx, rules.Request{
		Question:   f.Question,
		Kind:       f.Kind,
		Options:    f.Options,
		Site:       opts.Site,
		FormKind:   opts.FormKind,
		Locale:     opts.Locale,
		Required:   f.Required,
		JobContext: opts.JobContext,
	})
}

func (r *Runner) fillRadio(ctx context.Context, f Field, opts Options) {
	if f.Checked {
		r.logger.Debug("radio group already has a selection, skipping", "question", f.Question)
		return
	}
	if len(f.Options) == 0 {
		return
	}

	value := r.decide(ctx, f, opts)
	option, ok := r.matchOption(value, f.Options)
	if !ok {
		// Leaving a required group empty blocks the form; the first
		// option is the last-resort answer.
		option = f.Options[0]
		r.logger.Warn("no decision for radio group, falling back to first option",
			"question", f.Question, "option", option)
	}
	if err := r.inspector.Choose(ctx, f, option); err != nil {
		r.logger.Warn("radio selection failed", "question", f.Question, "error", err)
	}
}

func (r *Runner) fillCheckbox(ctx context.Context, f Field, opts Options) {
	if f.Checked {
		r.logger.Debug("checkbox already ticked, skipping", "question", f.Question)
		return
	}

	value := r.decide(ctx, f, opts)
	checked, ok := value.(bool)
	if !ok || !checked {
		return
	}
	if err := r.inspector.SetChecked(ctx, f, true); err != nil {
		r.logger.Warn("checkbox tick failed", "question", f.Question, "error", err)
	}
}

// fillCombobox types the decided value and picks from the filtered listbox
// with a best-match ladder: exact, then prefix, then substring, then the
// first offered option.
func (r *Runner) fillCombobox(ctx context.Context, f Field, opts Options) {
	if f.Value != "" {
		r.logger.Debug("combobox already filled, skipping", "question", f.Question)
		return
	}

	value := r.decide(ctx, f, opts)
	if value == nil {
		r.logger.Debug("no decision for combobox, skipping", "question", f.Question)
		return
	}
	text := rules.CoerceText(value)

	if err := r.inspector.SetValue(ctx, f, text); err != nil {
		r.logger.Warn("combobox typing failed", "question", f.Question, "error", err)
		return
	}
	offered, err := r.inspector.ListOptions(ctx, f)
	if err != nil || len(offered) == 0 {
		r.logger.Warn("combobox offered no options", "question", f.Question, "error", err)
		return
	}

	pick := r.bestComboboxMatch(text, offered)
	if err := r.inspector.Choose(ctx, f, pick); err != nil {
		r.logger.Warn("combobox selection failed", "question", f.Question, "error", err)
	}
}

func (r *Runner) bestComboboxMatch(want string, offered []string) string {
	wantNorm := r.n.Normalize(want)
	for _, opt := range offered {
		if r.n.Normalize(opt) == wantNorm {
			return opt
		}
	}
	for _, opt := range offered {
		if strings.HasPrefix(r.n.Normalize(opt), wantNorm) {
			return opt
		}
	}
	for _, opt := range offered {
		if strings.Contains(r.n.Normalize(opt), wantNorm) {
			return opt
		}
	}
	return offered[0]
}

func (r *Runner) fillSelect(ctx context.Context, f Field, opts Options) {
	if f.Value != "" {
		return
	}
	value := r.decide(ctx, f, opts)
	option, ok := r.matchOption(value, f.Options)
	if !ok {
		r.logger.Debug("no decision for select, skipping", "question", f.Question)
		return
	}
	if err := r.inspector.Choose(ctx, f, option); err != nil {
		r.logger.Warn("select failed", "question", f.Question, "error", err)
	}
}

func (r *Runner) fillNumber(ctx context.Context, f Field, opts Options) {
	if f.Value != "" {
		return
	}
	value := r.decide(ctx, f, opts)
	text := strconv.Itoa(rules.CoerceNumber(value))
	if err := r.inspector.SetValue(ctx, f, text); err != nil {
		r.logger.Warn("number input failed", "question", f.Question, "error", err)
	}
}

func (r *Runner) fillText(ctx context.Context, f Field, opts Options) {
	if f.Value != "" {
		return
	}
	value := r.decide(ctx, f, opts)
	text := rules.CoerceText(value)
	if err := r.inspector.SetValue(ctx, f, text); err != nil {
		r.logger.Warn("text input failed", "question", f.Question, "error", err)
	}
}

// matchOption maps a decided value onto one of the presented options by
// normalized, then canonical, equality.
func (r *Runner) matchOption(value any, options []string) (string, bool) {
	if value == nil || len(options) == 0 {
		return "", false
	}

	var text string
	switch v := value.(type) {
	case string:
		text = v
	case bool:
		if v {
			text = "yes"
		} else {
			text = "no"
		}
	default:
		text = rules.CoerceText(value)
	}

	textNorm := r.n.Normalize(text)
	for _, opt := range options {
		if r.n.Normalize(opt) == textNorm {
			return opt, true
		}
	}
	textCanon := r.n.MapToCanonical(text)
	for _, opt := range options {
		if r.n.MapToCanonical(opt) == textCanon {
			return opt, true
		}
	}
	return "", false
}

func (r *Runner) collectValidationErrors(ctx context.Context, d *Dialog) []string {
	errs, err := r.inspector.ValidationErrors(ctx, d)
	if err != nil {
		r.logger.Debug("validation error scan failed", "error", err)
		return nil
	}
	return errs
}
