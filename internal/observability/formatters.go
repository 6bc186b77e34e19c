// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/apply-agent/internal/modal"
	"github.com/jonathan/apply-agent/internal/profile"
	"github.com/jonathan/apply-agent/internal/rules"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfile outputs a human-readable summary of the loaded candidate
// profile.
func (p *Printer) PrintProfile(c *profile.Candidate) {
	if c == nil {
		return
	}
	p.printBox("CANDIDATE PROFILE", c.Summary())
}

// PrintRunResult outputs the outcome of a modal flow run.
func (p *Printer) PrintRunResult(result modal.RunResult) {
	var sb strings.Builder

	status := "✗ INCOMPLETE"
	if result.Submitted {
		status = "✓ SUBMITTED"
	} else if result.Completed {
		status = "✓ COMPLETED (not submitted)"
	}
	sb.WriteString(fmt.Sprintf("Status:  %s\n", status))
	sb.WriteString(fmt.Sprintf("Steps:   %d\n", result.StepsProcessed))
	if result.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason:  %s\n", result.Reason))
	}

	if len(result.ValidationErrors) > 0 {
		sb.WriteString("\nValidation errors:\n")
		count := min(len(result.ValidationErrors), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", result.ValidationErrors[i]))
		}
		if len(result.ValidationErrors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.ValidationErrors)-maxItemsToShow))
		}
	}

	p.printBox("APPLICATION RUN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRules outputs a summary of the loaded rule store.
func (p *Printer) PrintRules(stored []rules.Rule) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total rules: %d\n", len(stored)))

	count := min(len(stored), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
	}
	for i := 0; i < count; i++ {
		r := stored[i]
		pattern := r.Signature.QPattern
		if len(pattern) > 30 {
			pattern = pattern[:27] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s [%s]\n", r.ID, r.Signature.FieldKind))
		sb.WriteString(fmt.Sprintf("  pattern: %s\n", pattern))
		sb.WriteString(fmt.Sprintf("  %s, hits: %d\n", r.Meta.Source, r.Meta.Hits))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(stored) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more rules", len(stored)-maxItemsToShow))
	}

	p.printBox("RULE STORE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRuleCheck outputs the result of validating stored rules.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRuleCheck(problems map[string]string) {
	if len(problems) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL RULES VALID")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d problems:\n\n", len(problems)))

	i := 0
	for id, reason := range problems {
		if len(reason) > 45 {
			reason = reason[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s\n", id))
		sb.WriteString(fmt.Sprintf("  %s\n", reason))
		if i < len(problems)-1 {
			sb.WriteString("\n")
		}
		i++
	}

	p.printBox("RULE PROBLEMS", sb.String())
}
