package normalize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the synonym and keyword tables used by a Normalizer.
// All tables are optional; missing ones disable the corresponding lookups.
type Config struct {
	// Synonyms maps canonical values (e.g. "YES") to accepted variants.
	Synonyms map[string][]string `yaml:"synonyms"`
	// TypeKeywords maps question types to trigger keywords.
	TypeKeywords map[string][]string `yaml:"type_keywords"`
	// SkillSynonyms maps canonical skill names to form-side aliases.
	SkillSynonyms map[string][]string `yaml:"skill_synonyms"`
	// CurrencySynonyms maps canonical currency keys to textual mentions.
	CurrencySynonyms map[string][]string `yaml:"currency_synonyms"`
}

// DefaultConfig returns the built-in synonym and keyword tables.
func DefaultConfig() Config {
	return Config{
		Synonyms: map[string][]string{
			"YES": {"да", "y", "authorized", "i am authorized", "i confirm", "yes"},
			"NO":  {"нет", "n", "not authorized", "no"},
		},
		TypeKeywords: map[string][]string{
			string(TypeQuantityYears): {"year", "years", "experience", "опыт", "опыта", "лет"},
			string(TypeSalary):        {"salary", "compensation", "зарплата"},
			string(TypeLocation):      {"location", "city", "country", "локация", "город"},
			string(TypeBoolean):       {"are you", "do you", "have you", "can you", "вы", "у вас"},
		},
		SkillSynonyms: map[string][]string{},
		CurrencySynonyms: map[string][]string{
			"usd": {"usd", "dollar", "dollars"},
			"eur": {"eur", "euro", "euros"},
			"nis": {"nis", "ils", "shekel", "shekels"},
		},
	}
}

// LoadConfig reads a YAML configuration file. Tables absent from the file
// are filled from DefaultConfig so a partial override stays usable.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read normalizer config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse normalizer config %s: %w", path, err)
	}

	defaults := DefaultConfig()
	if cfg.Synonyms == nil {
		cfg.Synonyms = defaults.Synonyms
	}
	if cfg.TypeKeywords == nil {
		cfg.TypeKeywords = defaults.TypeKeywords
	}
	if cfg.SkillSynonyms == nil {
		cfg.SkillSynonyms = defaults.SkillSynonyms
	}
	if cfg.CurrencySynonyms == nil {
		cfg.CurrencySynonyms = defaults.CurrencySynonyms
	}
	return cfg, nil
}
