package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_LowercasesAndCollapsesWhitespace(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "how many years of python", n.Normalize("  How many   YEARS of Python?  "))
}

func TestNormalize_StripsMarkup(t *testing.T) {
	n := NewDefault()

	got := n.Normalize("<span>How many <b>years</b> of Python?</span>")
	assert.Equal(t, "how many years of python", got)
}

func TestNormalize_ReplacesPunctuationWithSpaces(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "c c and go", n.Normalize("C/C++ and Go!"))
	assert.Equal(t, "years_of python", n.Normalize("years_of: python"))
}

func TestNormalize_CollapsesRepeatedHalves(t *testing.T) {
	n := NewDefault()

	// A legend and an inline label concatenating is the usual source.
	assert.Equal(t, "years of python", n.Normalize("Years of Python Years of Python"))
	// Collapse repeats until a fixpoint.
	assert.Equal(t, "go", n.Normalize("go go go go"))
}

func TestNormalize_LeavesOddTokenCountsAlone(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "go go go", n.Normalize("go go go"))
}

func TestNormalize_KeepsCyrillicText(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "опыт работы с python", n.Normalize("Опыт работы с Python?"))
}

func TestNormalize_EmptyInput(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("  ?!  "))
}

func TestNormalizeString_PreservesCase(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "Tel Aviv, Israel", n.NormalizeString("  Tel Aviv,   Israel "))
}

func TestNormalizeOptions(t *testing.T) {
	n := NewDefault()

	got := n.NormalizeOptions([]string{"Yes!", " No "})
	assert.Equal(t, []string{"yes", "no"}, got)
}

func TestQuestionType_Classification(t *testing.T) {
	n := NewDefault()

	tests := []struct {
		question string
		want     QuestionType
	}{
		{"How many years of experience with Go?", TypeQuantityYears},
		{"Expected salary?", TypeSalary},
		{"What is your preferred location?", TypeLocation},
		{"Are you authorized to work?", TypeBoolean},
		{"Do you require sponsorship?", TypeBoolean},
		{"Сколько лет опыта с Python?", TypeQuantityYears},
		{"Ожидаемая зарплата?", TypeSalary},
		{"Favorite color?", TypeUnknown},
		{"", TypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.QuestionType(tt.question), "question: %q", tt.question)
	}
}

func TestQuestionType_YearsWinsOverBoolean(t *testing.T) {
	n := NewDefault()

	// Keyword sets are consulted in a fixed order.
	assert.Equal(t, TypeQuantityYears, n.QuestionType("Do you have years of experience?"))
}

func TestMapToCanonical(t *testing.T) {
	n := NewDefault()

	tests := []struct {
		in   string
		want string
	}{
		{"Yes", "YES"},
		{"yes", "YES"},
		{"Да", "YES"},
		{"I am authorized", "YES"},
		{"No", "NO"},
		{"Нет", "NO"},
		{"Maybe", "maybe"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.MapToCanonical(tt.in), "value: %q", tt.in)
	}
}

func TestMapSkillToCanonical(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkillSynonyms = map[string][]string{
		"python": {"python3", "py"},
	}
	n := New(cfg)

	assert.Equal(t, "python", n.MapSkillToCanonical("python3"))
	assert.Equal(t, "python", n.MapSkillToCanonical("py"))
	assert.Equal(t, "golang", n.MapSkillToCanonical("golang"))
}

func TestFindBestMatch_ExactAndFuzzy(t *testing.T) {
	n := NewDefault()
	choices := []string{"Tel Aviv", "Jerusalem", "Haifa"}

	assert.Equal(t, "Tel Aviv", n.FindBestMatch("tel aviv", choices, DefaultMatchThreshold))
	assert.Equal(t, "Tel Aviv", n.FindBestMatch("Tel-Aviv", choices, DefaultMatchThreshold))
}

func TestFindBestMatch_ReturnsOriginalChoiceText(t *testing.T) {
	n := NewDefault()

	got := n.FindBestMatch("yes", []string{"  YES  ", "No"}, DefaultMatchThreshold)
	assert.Equal(t, "  YES  ", got)
}

func TestFindBestMatch_BelowThreshold(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "", n.FindBestMatch("remote", []string{"Tel Aviv", "Jerusalem"}, DefaultMatchThreshold))
	assert.Equal(t, "", n.FindBestMatch("anything", nil, DefaultMatchThreshold))
}

func TestFindBestMatch_IgnoresWordOrder(t *testing.T) {
	n := NewDefault()

	got := n.FindBestMatch("Israel, Tel Aviv", []string{"Tel Aviv Israel", "Berlin Germany"}, DefaultMatchThreshold)
	assert.Equal(t, "Tel Aviv Israel", got)
}

func TestDetectCurrency_Symbols(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "usd", n.DetectCurrency("", "Expected salary in $"))
	assert.Equal(t, "eur", n.DetectCurrency("", "Gehalt in €"))
	assert.Equal(t, "nis", n.DetectCurrency("", "₪ per month"))
	assert.Equal(t, "nis", n.DetectCurrency("", "Salary (NIS)"))
}

func TestDetectCurrency_Synonyms(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "usd", n.DetectCurrency("expected salary in dollars", ""))
	assert.Equal(t, "eur", n.DetectCurrency("salary in euros", ""))
	assert.Equal(t, "nis", n.DetectCurrency("monthly salary in shekels", ""))
}

func TestDetectCurrency_NoMatch(t *testing.T) {
	n := NewDefault()

	assert.Equal(t, "", n.DetectCurrency("expected salary", "Expected salary"))
	assert.Equal(t, "", n.DetectCurrency("", ""))
}

func TestLoadConfig_MergesDefaultsForMissingTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	content := "synonyms:\n  YES:\n    - sure\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"sure"}, cfg.Synonyms["YES"])
	assert.NotEmpty(t, cfg.TypeKeywords)
	assert.NotEmpty(t, cfg.CurrencySynonyms)

	n := New(cfg)
	assert.Equal(t, "YES", n.MapToCanonical("Sure"))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("synonyms: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
