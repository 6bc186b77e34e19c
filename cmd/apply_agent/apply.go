package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/delegate"
	"github.com/jonathan/apply-agent/internal/modal"
	"github.com/jonathan/apply-agent/internal/normalize"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/profile"
	"github.com/jonathan/apply-agent/internal/rules"
)

var applyCommand = &cobra.Command{
	Use:   "apply",
	Short: "Run the application flow against a job posting URL",
	Long: `Opens the job posting, triggers the application modal, and walks it step by step, answering fields from the candidate profile.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values. Without --submit the run stops in front of the final submit button (dry run).`,
	RunE: runApplyCmd,
}

var (
	applyConfigPath string
	applyProfile    string
	applyRules      string
	applySynonyms   string
	applyURL        string
	applySite       string
	applyFormKind   string
	applyLocale     string
	applyMaxSteps   int
	applySubmit     bool
	applyHeadless   bool
	applyAPIKey     string
	applyModel      string
	applyVerbose    bool
)

func init() {
	// Config file flag (processed first)
	applyCommand.Flags().StringVar(&applyConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	applyCommand.Flags().StringVarP(&applyProfile, "profile", "p", "", "Path to candidate profile (JSON or YAML)")
	applyCommand.Flags().StringVarP(&applyRules, "rules", "r", "", "Path to rule store file (created if missing)")
	applyCommand.Flags().StringVar(&applySynonyms, "synonyms", "", "Path to normalizer synonym tables (YAML, optional)")
	applyCommand.Flags().StringVarP(&applyURL, "url", "u", "", "Job posting URL to open")
	applyCommand.Flags().StringVar(&applySite, "site", "", "Site key for rule scoping (e.g. \"linkedin\")")
	applyCommand.Flags().StringVar(&applyFormKind, "form-kind", "", "Form kind for rule scoping")
	applyCommand.Flags().StringVar(&applyLocale, "locale", "", "Locale for rule scoping")
	applyCommand.Flags().IntVar(&applyMaxSteps, "max-steps", 0, "Maximum modal steps per run")
	applyCommand.Flags().BoolVar(&applySubmit, "submit", false, "Click the final submit button (default is a dry run)")
	applyCommand.Flags().BoolVar(&applyHeadless, "headless", false, "Run the browser headless")
	applyCommand.Flags().BoolVarP(&applyVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	applyCommand.Flags().StringVar(&applyAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	applyCommand.Flags().StringVar(&applyModel, "model", "", "Gemini model name")

	rootCmd.AddCommand(applyCommand)
}

func runApplyCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if applyConfigPath != "" {
		loadedCfg, err := config.LoadConfig(applyConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Validate loaded config
		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if applyVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", applyConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("profile") {
		cfg.Profile = applyProfile
	}
	if cmd.Flags().Changed("rules") {
		cfg.Rules = applyRules
	}
	if cmd.Flags().Changed("synonyms") {
		cfg.Synonyms = applySynonyms
	}
	if cmd.Flags().Changed("url") {
		cfg.URL = applyURL
	}
	if cmd.Flags().Changed("site") {
		cfg.Site = applySite
	}
	if cmd.Flags().Changed("form-kind") {
		cfg.FormKind = applyFormKind
	}
	if cmd.Flags().Changed("locale") {
		cfg.Locale = applyLocale
	}
	if cmd.Flags().Changed("max-steps") {
		cfg.MaxSteps = applyMaxSteps
	}
	if cmd.Flags().Changed("submit") {
		cfg.Submit = applySubmit
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = applyHeadless
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = applyAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = applyModel
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = applyVerbose
	}

	// Step 3: Apply defaults for unset values
	defaults := config.Config{
		Rules:    "rules.json",
		Site:     "*",
		FormKind: "job_apply",
		Locale:   "en",
		MaxSteps: modal.DefaultMaxSteps,
		Model:    delegate.DefaultModel,
	}
	cfg = cfg.MergeWithDefaults(defaults)

	// Step 4: Validate required fields
	if cfg.Profile == "" {
		return fmt.Errorf("--profile is required (via flag or config)")
	}
	if cfg.URL == "" {
		return fmt.Errorf("--url is required (via flag or config)")
	}

	// Step 5: API Key handling. Without a key the delegate stage is skipped
	// and unresolved fields stay unanswered.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	logger := newLogger(cfg.Verbose)

	// Load candidate profile
	candidate, err := profile.Load(cfg.Profile)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	// Normalizer with optional synonym overrides
	normCfg := normalize.DefaultConfig()
	if cfg.Synonyms != "" {
		normCfg, err = normalize.LoadConfig(cfg.Synonyms)
		if err != nil {
			return fmt.Errorf("failed to load synonyms: %w", err)
		}
	}
	n := normalize.New(normCfg)

	// Open (or initialize) the rule store
	store, err := rules.Open(cfg.Rules, logger)
	if err != nil {
		return fmt.Errorf("failed to open rule store: %w", err)
	}

	// Optional LLM delegate
	var d delegate.Delegate
	if cfg.APIKey != "" {
		gemini, err := delegate.NewGemini(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return fmt.Errorf("failed to create delegate: %w", err)
		}
		defer func() { _ = gemini.Close() }()
		d = gemini
	} else {
		logger.Warn("no API key configured, running without delegate")
	}

	engine := rules.NewEngine(candidate, store, n, d, rules.DefaultLearningConfig(), logger)

	// Start the browser and open the posting
	chrome, err := browser.New(ctx, browser.Options{Headless: cfg.Headless}, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer chrome.Close()

	if err := chrome.Navigate(ctx, cfg.URL); err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.URL, err)
	}

	runner := modal.NewRunner(chrome, engine, n, logger)
	result := runner.Run(ctx, modal.Options{
		MaxSteps: cfg.MaxSteps,
		Submit:   cfg.Submit,
		Site:     cfg.Site,
		FormKind: cfg.FormKind,
		Locale:   cfg.Locale,
	})

	// Drain background rule learning before persisting
	engine.Wait()
	if err := store.Save(); err != nil {
		logger.Warn("failed to persist rule store", "error", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintProfile(candidate)
	}
	printer.PrintRunResult(result)

	if !result.Completed {
		return fmt.Errorf("application did not complete: %s", result.Reason)
	}
	return nil
}
