// Package modal drives a multi-step application dialog: it walks the
// active modal's fields, asks the decision engine for values, fills them,
// and advances until the form is submitted or abandoned.
package modal

import (
	"context"
	"regexp"

	"github.com/jonathan/apply-agent/internal/field"
)

// Dialog references an open modal dialog in the page.
type Dialog struct {
	// Ref is an implementation-specific handle for the dialog.
	Ref string
}

// Field is one interactable form field inside a dialog. Radio groups are
// reported as a single Field whose Options are the group's choices.
type Field struct {
	Kind     field.Kind
	Question string
	Options  []string
	// Group is the radio group name, empty for other kinds.
	Group string
	// Checked reports whether a radio group already has a selection or a
	// checkbox is ticked.
	Checked bool
	// Value is the current input value, empty when unfilled.
	Value    string
	Required bool
	// Ref is an implementation-specific handle for the field.
	Ref string
}

// Control is a clickable element such as a navigation button.
type Control struct {
	Ref   string
	Label string
}

// Inspector abstracts the browser. The runner only ever talks to this
// interface, so the flow logic is testable without a browser.
type Inspector interface {
	// ActiveDialog returns the topmost visible modal dialog, or nil when
	// none is open.
	ActiveDialog(ctx context.Context) (*Dialog, error)
	// Fields enumerates the dialog's fields of one kind.
	Fields(ctx context.Context, d *Dialog, kind field.Kind) ([]Field, error)
	// ListOptions returns the currently offered options for a field. For
	// comboboxes it reflects the open listbox after typing.
	ListOptions(ctx context.Context, f Field) ([]string, error)
	// SetValue types a value into an input field.
	SetValue(ctx context.Context, f Field, value string) error
	// Choose selects the option with the given text.
	Choose(ctx context.Context, f Field, option string) error
	// SetChecked ticks or unticks a checkbox.
	SetChecked(ctx context.Context, f Field, checked bool) error
	// FindControl returns the first enabled button in the dialog whose
	// label matches rx, or nil.
	FindControl(ctx context.Context, d *Dialog, rx *regexp.Regexp) (*Control, error)
	// Click clicks a control.
	Click(ctx context.Context, c *Control) error
	// WaitForDetach blocks until the dialog leaves the DOM or the context
	// expires.
	WaitForDetach(ctx context.Context, d *Dialog) error
	// WaitReady blocks until in-flight loading indicators settle.
	WaitReady(ctx context.Context) error
	// ValidationErrors returns visible validation messages in the dialog.
	ValidationErrors(ctx context.Context, d *Dialog) ([]string, error)
}
