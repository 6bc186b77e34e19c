// Package browser implements the modal.Inspector interface on a headless
// Chrome via chromedp. Elements are tagged with data attributes from
// injected helpers so actions can target them by stable selectors.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/modal"
)

// Options configures a Chrome session.
type Options struct {
	Headless bool
	// SettleTimeout bounds WaitReady and WaitForDetach polling.
	SettleTimeout time.Duration
}

// Chrome drives a headless Chrome page and implements modal.Inspector.
type Chrome struct {
	ctx           context.Context
	cancels       []context.CancelFunc
	settleTimeout time.Duration
	logger        *slog.Logger
}

// New starts a Chrome session. Close must be called to release it.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	settle := opts.SettleTimeout
	if settle <= 0 {
		settle = 15 * time.Second
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so startup failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Chrome{
		ctx:           browserCtx,
		cancels:       []context.CancelFunc{cancelBrowser, cancelAlloc},
		settleTimeout: settle,
		logger:        logger,
	}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	for _, cancel := range c.cancels {
		cancel()
	}
}

// Navigate opens url and waits for the document body.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Info("navigating", "url", url)
	err := chromedp.Run(c.run(ctx),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return c.installHelpers(ctx)
}

// run merges the session context with the caller's cancellation.
func (c *Chrome) run(ctx context.Context) context.Context {
	if ctx == nil {
		return c.ctx
	}
	merged, cancel := context.WithCancel(c.ctx)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}

func (c *Chrome) installHelpers(ctx context.Context) error {
	var ok bool
	if err := chromedp.Run(c.run(ctx), chromedp.Evaluate(helpersJS, &ok)); err != nil {
		return fmt.Errorf("failed to install page helpers: %w", err)
	}
	return nil
}

func (c *Chrome) eval(ctx context.Context, expr string, out any) error {
	if err := c.installHelpers(ctx); err != nil {
		return err
	}
	return chromedp.Run(c.run(ctx), chromedp.Evaluate(expr, out))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func refSelector(ref string) string {
	return fmt.Sprintf(`[data-aa-ref=%q]`, ref)
}

// ActiveDialog returns the topmost visible modal, or nil.
func (c *Chrome) ActiveDialog(ctx context.Context) (*modal.Dialog, error) {
	var ref string
	expr := `(() => { const d = window.__aa.activeDialog(); return d ? window.__aa.tag(d) : ""; })()`
	if err := c.eval(ctx, expr, &ref); err != nil {
		return nil, fmt.Errorf("failed to find active dialog: %w", err)
	}
	if ref == "" {
		return nil, nil
	}
	return &modal.Dialog{Ref: ref}, nil
}

type fieldEntry struct {
	Ref      string   `json:"ref"`
	Kind     string   `json:"kind"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Group    string   `json:"group"`
	Checked  bool     `json:"checked"`
	Value    string   `json:"value"`
	Required bool     `json:"required"`
}

// Fields enumerates the dialog's fields of one kind. Radio inputs are
// grouped by name into a single field whose options are the group labels.
func (c *Chrome) Fields(ctx context.Context, d *modal.Dialog, kind field.Kind) ([]modal.Field, error) {
	expr := fmt.Sprintf(
		`(() => { const d = window.__aa.byRef(%s); return d ? window.__aa.fields(d, %s) : []; })()`,
		jsString(d.Ref), jsString(string(kind)))

	var entries []fieldEntry
	if err := c.eval(ctx, expr, &entries); err != nil {
		return nil, fmt.Errorf("failed to enumerate %s fields: %w", kind, err)
	}

	out := make([]modal.Field, 0, len(entries))
	for _, e := range entries {
		out = append(out, modal.Field{
			Kind:     kind,
			Question: e.Question,
			Options:  e.Options,
			Group:    e.Group,
			Checked:  e.Checked,
			Value:    e.Value,
			Required: e.Required,
			Ref:      e.Ref,
		})
	}
	return out, nil
}

type optionEntry struct {
	Ref   string `json:"ref"`
	Label string `json:"label"`
}

// ListOptions returns a select's option texts, or the visible listbox
// options after typing into a combobox.
func (c *Chrome) ListOptions(ctx context.Context, f modal.Field) ([]string, error) {
	if f.Kind == field.KindSelect {
		expr := fmt.Sprintf(
			`(() => { const el = window.__aa.byRef(%s); return el ? Array.from(el.options).map(o => o.text.trim()).filter(Boolean) : []; })()`,
			jsString(f.Ref))
		var options []string
		if err := c.eval(ctx, expr, &options); err != nil {
			return nil, fmt.Errorf("failed to list select options: %w", err)
		}
		return options, nil
	}

	var entries []optionEntry
	if err := c.eval(ctx, `window.__aa.listboxOptions()`, &entries); err != nil {
		return nil, fmt.Errorf("failed to list listbox options: %w", err)
	}
	options := make([]string, 0, len(entries))
	for _, e := range entries {
		options = append(options, e.Label)
	}
	return options, nil
}

// SetValue types value into an input, replacing any existing content.
func (c *Chrome) SetValue(ctx context.Context, f modal.Field, value string) error {
	sel := refSelector(f.Ref)
	clear := fmt.Sprintf(
		`(() => { const el = window.__aa.byRef(%s); if (el) { el.focus(); el.value = ""; el.dispatchEvent(new Event("input", {bubbles: true})); } return true; })()`,
		jsString(f.Ref))

	var ok bool
	err := chromedp.Run(c.run(ctx),
		chromedp.Evaluate(clear, &ok),
		chromedp.SendKeys(sel, value, chromedp.NodeVisible),
	)
	if err != nil {
		return fmt.Errorf("failed to set value on %q: %w", f.Question, err)
	}
	return nil
}

// Choose selects an option: a radio in the field's group, a select option,
// or a visible listbox option, all matched by label text.
func (c *Chrome) Choose(ctx context.Context, f modal.Field, option string) error {
	var expr string
	switch f.Kind {
	case field.KindRadio:
		expr = fmt.Sprintf(`(() => {
			const first = window.__aa.byRef(%s);
			if (!first) return false;
			const name = %s || first.name;
			const radios = name
				? Array.from(document.getElementsByName(name)).filter(el => el.type === "radio")
				: [first];
			for (const el of radios) {
				if ((window.__aa.labelFor(el) || el.value).trim() === %s) { el.click(); return true; }
			}
			return false;
		})()`, jsString(f.Ref), jsString(f.Group), jsString(option))
	case field.KindSelect:
		expr = fmt.Sprintf(`(() => {
			const el = window.__aa.byRef(%s);
			if (!el) return false;
			for (const o of el.options) {
				if (o.text.trim() === %s) {
					el.value = o.value;
					el.dispatchEvent(new Event("change", {bubbles: true}));
					return true;
				}
			}
			return false;
		})()`, jsString(f.Ref), jsString(option))
	default:
		expr = fmt.Sprintf(`(() => {
			for (const o of window.__aa.listboxOptions()) {
				if (o.label.trim() === %s) { window.__aa.byRef(o.ref).click(); return true; }
			}
			return false;
		})()`, jsString(option))
	}

	var ok bool
	if err := c.eval(ctx, expr, &ok); err != nil {
		return fmt.Errorf("failed to choose %q for %q: %w", option, f.Question, err)
	}
	if !ok {
		return fmt.Errorf("option %q not found for %q", option, f.Question)
	}
	return nil
}

// SetChecked clicks a checkbox when its state differs from checked.
func (c *Chrome) SetChecked(ctx context.Context, f modal.Field, checked bool) error {
	expr := fmt.Sprintf(
		`(() => { const el = window.__aa.byRef(%s); if (!el) return false; if (el.checked !== %t) el.click(); return true; })()`,
		jsString(f.Ref), checked)

	var ok bool
	if err := c.eval(ctx, expr, &ok); err != nil {
		return fmt.Errorf("failed to set checkbox %q: %w", f.Question, err)
	}
	if !ok {
		return fmt.Errorf("checkbox %q not found", f.Question)
	}
	return nil
}

// FindControl returns the first visible enabled button in the dialog whose
// label matches rx.
func (c *Chrome) FindControl(ctx context.Context, d *modal.Dialog, rx *regexp.Regexp) (*modal.Control, error) {
	source := strings.TrimPrefix(rx.String(), "(?i)")
	expr := fmt.Sprintf(
		`(() => { const d = window.__aa.byRef(%s); return d ? window.__aa.findControl(d, %s) : null; })()`,
		jsString(d.Ref), jsString(source))

	var entry *optionEntry
	if err := c.eval(ctx, expr, &entry); err != nil {
		return nil, fmt.Errorf("failed to find control: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	return &modal.Control{Ref: entry.Ref, Label: entry.Label}, nil
}

// Click clicks a control.
func (c *Chrome) Click(ctx context.Context, ctrl *modal.Control) error {
	if err := chromedp.Run(c.run(ctx), chromedp.Click(refSelector(ctrl.Ref), chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %q: %w", ctrl.Label, err)
	}
	return nil
}

// WaitForDetach polls until the dialog leaves the DOM.
func (c *Chrome) WaitForDetach(ctx context.Context, d *modal.Dialog) error {
	expr := fmt.Sprintf(`!document.querySelector(%s)`, jsString(refSelector(d.Ref)))
	return c.awaitCondition(ctx, expr, "dialog detach")
}

// WaitReady polls until the document is loaded and no visible loading
// indicator remains.
func (c *Chrome) WaitReady(ctx context.Context) error {
	return c.awaitCondition(ctx, `!window.__aa.busy()`, "page settle")
}

// ValidationErrors returns visible validation messages inside the dialog.
func (c *Chrome) ValidationErrors(ctx context.Context, d *modal.Dialog) ([]string, error) {
	expr := fmt.Sprintf(
		`(() => { const d = window.__aa.byRef(%s); return d ? window.__aa.validationErrors(d) : []; })()`,
		jsString(d.Ref))

	var errs []string
	if err := c.eval(ctx, expr, &errs); err != nil {
		return nil, fmt.Errorf("failed to scan validation errors: %w", err)
	}
	return errs, nil
}

// awaitCondition polls a boolean page expression until it holds or the
// settle timeout passes.
func (c *Chrome) awaitCondition(ctx context.Context, expr, what string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(c.settleTimeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		var done bool
		if err := c.eval(ctx, expr, &done); err != nil {
			return fmt.Errorf("failed to poll for %s: %w", what, err)
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", what)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
