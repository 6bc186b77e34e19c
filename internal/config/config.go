// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Profile  string `json:"profile,omitempty"`  // Path to candidate profile (JSON or YAML)
	Rules    string `json:"rules,omitempty"`    // Path to rule store file
	Synonyms string `json:"synonyms,omitempty"` // Path to normalizer synonym tables (YAML)

	// Target
	URL      string `json:"url,omitempty"`       // Job posting URL to open
	Site     string `json:"site,omitempty"`      // Site key for rule scoping (e.g. "linkedin")
	FormKind string `json:"form_kind,omitempty"` // Form kind for rule scoping
	Locale   string `json:"locale,omitempty"`    // Locale for rule scoping

	// Behavior
	MaxSteps int    `json:"max_steps,omitempty"` // Maximum modal steps per run
	Submit   bool   `json:"submit,omitempty"`    // Click the final submit button
	Headless bool   `json:"headless,omitempty"`  // Run the browser headless
	APIKey   string `json:"api_key,omitempty"`   // Gemini API key
	Model    string `json:"model,omitempty"`     // Gemini model name
	Verbose  bool   `json:"verbose,omitempty"`   // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("config error: 'max_steps' must be non-negative")
	}

	// Validate file paths exist (if specified)
	if c.Profile != "" {
		if _, err := os.Stat(c.Profile); os.IsNotExist(err) {
			return fmt.Errorf("config error: profile file not found: %s", c.Profile)
		}
	}
	if c.Synonyms != "" {
		if _, err := os.Stat(c.Synonyms); os.IsNotExist(err) {
			return fmt.Errorf("config error: synonyms file not found: %s", c.Synonyms)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Profile == "" {
		result.Profile = defaults.Profile
	}
	if result.Rules == "" {
		result.Rules = defaults.Rules
	}
	if result.Synonyms == "" {
		result.Synonyms = defaults.Synonyms
	}
	if result.URL == "" {
		result.URL = defaults.URL
	}
	if result.Site == "" {
		result.Site = defaults.Site
	}
	if result.FormKind == "" {
		result.FormKind = defaults.FormKind
	}
	if result.Locale == "" {
		result.Locale = defaults.Locale
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}

	// Int fields: use default if zero
	if result.MaxSteps == 0 {
		result.MaxSteps = defaults.MaxSteps
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
