package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/field"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/rules"
)

var checkRulesCmd = &cobra.Command{
	Use:   "check-rules",
	Short: "Validate every rule in the rule store",
	Long:  "Loads the rule store and checks each rule for a compilable question pattern, a known field kind, and complete strategy params. Exits non-zero when problems are found.",
	RunE:  runCheckRules,
}

var (
	checkRulesPath    string
	checkRulesVerbose bool
)

func init() {
	checkRulesCmd.Flags().StringVarP(&checkRulesPath, "rules", "r", "rules.json", "Path to rule store file")
	checkRulesCmd.Flags().BoolVarP(&checkRulesVerbose, "verbose", "v", false, "Also print a summary of the store")

	rootCmd.AddCommand(checkRulesCmd)
}

func runCheckRules(_ *cobra.Command, _ []string) error {
	logger := newLogger(checkRulesVerbose)

	store, err := rules.Open(checkRulesPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open rule store: %w", err)
	}

	problems := checkStoredRules(store.Rules(), logger)

	printer := observability.NewPrinter(os.Stdout)
	if checkRulesVerbose {
		printer.PrintRules(store.Rules())
	}
	printer.PrintRuleCheck(problems)

	if len(problems) > 0 {
		return fmt.Errorf("%d of %d rules have problems", len(problems), store.Len())
	}
	return nil
}

// checkStoredRules runs every stored rule through the same screening that
// gates learned suggestions, plus the field kind check the store cannot
// express in its schema.
func checkStoredRules(stored []rules.Rule, logger *slog.Logger) map[string]string {
	validator := rules.NewSuggestionValidator(logger)
	problems := make(map[string]string)

	for _, r := range stored {
		if !field.Kind(r.Signature.FieldKind).Valid() {
			problems[r.ID] = fmt.Sprintf("unknown field kind: %q", r.Signature.FieldKind)
			continue
		}
		suggestion := &delegate.RuleSuggestion{
			QPattern:   r.Signature.QPattern,
			Strategy:   r.Strategy,
			Confidence: r.Meta.Confidence,
		}
		if ok, reason := validator.Validate(suggestion); !ok {
			problems[r.ID] = reason
		}
	}
	return problems
}
