// Package normalize cleans raw form-field text and matches values against
// synonym tables and option lists.
package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// QuestionType is the coarse semantic class of a question. It is advisory
// only; callers must not treat it as authoritative.
type QuestionType string

// Known question types.
const (
	TypeQuantityYears QuestionType = "QUANTITY_YEARS"
	TypeSalary        QuestionType = "SALARY"
	TypeLocation      QuestionType = "LOCATION"
	TypeBoolean       QuestionType = "BOOLEAN"
	TypeUnknown       QuestionType = "UNKNOWN"
)

// classifyOrder fixes the order in which keyword sets are consulted, so a
// question matching multiple sets classifies deterministically.
var classifyOrder = []QuestionType{TypeQuantityYears, TypeSalary, TypeLocation, TypeBoolean}

var (
	nonWordRx    = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	whitespaceRx = regexp.MustCompile(`\s+`)
	markupRx     = regexp.MustCompile(`<[^>]+>`)
)

// Normalizer normalizes question text and matches values against configured
// synonym sets.
type Normalizer struct {
	cfg          Config
	typeKeywords map[QuestionType]map[string]struct{}
	skillToCanon map[string]string
}

// New creates a Normalizer from the given configuration.
func New(cfg Config) *Normalizer {
	n := &Normalizer{
		cfg:          cfg,
		typeKeywords: make(map[QuestionType]map[string]struct{}),
		skillToCanon: make(map[string]string),
	}
	for qType, words := range cfg.TypeKeywords {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		n.typeKeywords[QuestionType(qType)] = set
	}
	// Reverse map from normalized synonym to canonical skill name.
	for canonical, synonyms := range cfg.SkillSynonyms {
		for _, syn := range synonyms {
			n.skillToCanon[n.Normalize(syn)] = canonical
		}
	}
	return n
}

// NewDefault creates a Normalizer with the built-in synonym tables.
func NewDefault() *Normalizer {
	return New(DefaultConfig())
}

// Normalize cleans text for comparison: lowercases, strips markup, replaces
// punctuation runs with single spaces, collapses whitespace, and collapses
// text that is its own duplicate back-to-back (a common artifact when a
// legend and an inline label concatenate).
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	normalized := strings.ToLower(text)
	normalized = stripMarkup(normalized)
	normalized = nonWordRx.ReplaceAllString(normalized, " ")
	normalized = whitespaceRx.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	return collapseRepeatedHalves(normalized)
}

// stripMarkup removes HTML tags from text. goquery handles entity decoding
// and nesting; the regex is the fallback for unparseable fragments.
func stripMarkup(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return markupRx.ReplaceAllString(text, "")
	}
	return doc.Text()
}

// collapseRepeatedHalves reduces a token sequence composed of two identical
// halves to a single occurrence, repeating until no more halves match.
// Odd-length token sequences are never touched.
func collapseRepeatedHalves(text string) string {
	current := text
	for current != "" {
		tokens := strings.Fields(current)
		if len(tokens) == 0 || len(tokens)%2 != 0 {
			break
		}
		mid := len(tokens) / 2
		if !equalTokens(tokens[:mid], tokens[mid:]) {
			break
		}
		reduced := strings.Join(tokens[:mid], " ")
		if reduced == current {
			break
		}
		current = reduced
	}
	return current
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NormalizeString trims leading/trailing whitespace and collapses inner
// whitespace without touching case or punctuation.
func (n *Normalizer) NormalizeString(text string) string {
	return whitespaceRx.ReplaceAllString(strings.TrimSpace(text), " ")
}

// NormalizeOptions normalizes each option string in a list.
func (n *Normalizer) NormalizeOptions(options []string) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = n.Normalize(opt)
	}
	return out
}

// QuestionType detects the coarse semantic type of a question, returning
// TypeUnknown when no keyword set matches.
func (n *Normalizer) QuestionType(question string) QuestionType {
	qNorm := n.Normalize(question)
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(qNorm) {
		tokens[tok] = struct{}{}
	}
	for _, qType := range classifyOrder {
		keywords, ok := n.typeKeywords[qType]
		if !ok {
			continue
		}
		for kw := range keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(qNorm, kw) {
					return qType
				}
				continue
			}
			if _, hit := tokens[kw]; hit {
				return qType
			}
		}
	}
	return TypeUnknown
}

// MapToCanonical resolves a raw value to its canonical form (e.g. "Да" ->
// "YES") using the configured synonym dictionary, falling back to the
// normalized original when no mapping exists.
func (n *Normalizer) MapToCanonical(value string) string {
	normalized := n.Normalize(value)

	canonicals := make([]string, 0, len(n.cfg.Synonyms))
	for canonical := range n.cfg.Synonyms {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		if normalized == n.Normalize(canonical) {
			return canonical
		}
		for _, syn := range n.cfg.Synonyms[canonical] {
			if normalized == n.Normalize(syn) {
				return canonical
			}
		}
	}
	return normalized
}

// MapSkillToCanonical maps a normalized skill name to its canonical form,
// returning the input unchanged when no synonym is configured.
func (n *Normalizer) MapSkillToCanonical(skill string) string {
	if canonical, ok := n.skillToCanon[skill]; ok {
		return canonical
	}
	return skill
}

// DefaultMatchThreshold is the minimum token-set similarity (0-100) for
// FindBestMatch to report a match.
const DefaultMatchThreshold = 85

// FindBestMatch returns the choice most similar to target using token-set
// fuzzy matching, or "" when no choice scores at or above threshold.
func (n *Normalizer) FindBestMatch(target string, choices []string, threshold int) string {
	if len(choices) == 0 {
		return ""
	}
	targetNorm := n.Normalize(target)

	best := ""
	bestScore := 0
	for _, choice := range choices {
		score := tokenSetRatio(targetNorm, n.Normalize(choice))
		if score > bestScore {
			best = choice
			bestScore = score
		}
	}
	if bestScore < threshold {
		return ""
	}
	return best
}

// DetectCurrency returns the canonical currency key mentioned in the text
// ("usd", "eur", "nis", ...), or "" when none is found. Literal currency
// symbols in rawText take precedence over synonym lookups.
func (n *Normalizer) DetectCurrency(text, rawText string) string {
	if text == "" && rawText == "" {
		return ""
	}

	if rawText != "" {
		switch {
		case strings.Contains(rawText, "$"):
			return "usd"
		case strings.Contains(rawText, "€"):
			return "eur"
		case strings.Contains(rawText, "₪") || strings.Contains(strings.ToLower(rawText), "nis"):
			return "nis"
		}
	}

	textNorm := text
	if textNorm == "" {
		textNorm = n.Normalize(rawText)
	}
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(textNorm) {
		tokens[tok] = struct{}{}
	}

	canonicals := make([]string, 0, len(n.cfg.CurrencySynonyms))
	for canonical := range n.cfg.CurrencySynonyms {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		for _, syn := range n.cfg.CurrencySynonyms[canonical] {
			synNorm := n.Normalize(syn)
			if synNorm == "" {
				continue
			}
			if _, hit := tokens[synNorm]; hit {
				return strings.ToLower(canonical)
			}
			if strings.Contains(textNorm, synNorm) {
				return strings.ToLower(canonical)
			}
		}
	}
	return ""
}
