package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandidate() *Candidate {
	return &Candidate{
		YearsExperience:   map[string]int{"python": 6, "go": 3},
		SalaryExpectation: map[string]int{"monthly_net_nis": 30000, "monthly_net_usd": 9000},
		WorkAuthorization: map[string]string{"israel": "citizen"},
		Links:             map[string]string{"github": "https://github.com/example"},
		NoticePeriodDays:  30,
		PreferredLocation: "Tel Aviv",
		Phone:             "+972500000000",
		ShortBioEN:        "Backend engineer.",
		Extra: map[string]any{
			"languages": map[string]any{"english": "fluent"},
			"relocate":  "no",
		},
	}
}

func TestGet_TypedFields(t *testing.T) {
	c := testCandidate()

	tests := []struct {
		path string
		want any
	}{
		{"years_experience.python", 6},
		{"years_experience.go", 3},
		{"salary_expectation.monthly_net_nis", 30000},
		{"work_authorization.israel", "citizen"},
		{"links.github", "https://github.com/example"},
		{"notice_period_days", 30},
		{"preferred_location", "Tel Aviv"},
		{"phone", "+972500000000"},
		{"short_bio_en", "Backend engineer."},
	}
	for _, tt := range tests {
		got, ok := c.Get(tt.path)
		require.True(t, ok, "path: %s", tt.path)
		assert.Equal(t, tt.want, got, "path: %s", tt.path)
	}
}

func TestGet_ExtraFields(t *testing.T) {
	c := testCandidate()

	got, ok := c.Get("relocate")
	require.True(t, ok)
	assert.Equal(t, "no", got)

	got, ok = c.Get("languages.english")
	require.True(t, ok)
	assert.Equal(t, "fluent", got)
}

func TestGet_Missing(t *testing.T) {
	c := testCandidate()

	_, ok := c.Get("years_experience.rust")
	assert.False(t, ok)
	_, ok = c.Get("nonexistent")
	assert.False(t, ok)
	_, ok = c.Get("languages.german")
	assert.False(t, ok)
	_, ok = c.Get("")
	assert.False(t, ok)
}

func TestGet_NilCandidate(t *testing.T) {
	var c *Candidate
	_, ok := c.Get("phone")
	assert.False(t, ok)
}

func TestSummary_IncludesKeyData(t *testing.T) {
	c := testCandidate()

	s := c.Summary()
	assert.Contains(t, s, "python: 6")
	assert.Contains(t, s, "monthly_net_nis: 30000")
	assert.Contains(t, s, "Notice period: 30 days")
	assert.Contains(t, s, "Preferred location: Tel Aviv")
	assert.Contains(t, s, "relocate: no")
}

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeProfile(t, "profile.json", `{
		"years_experience": {"python": 6},
		"salary_expectation": {"monthly_net_nis": 30000},
		"preferred_location": "Tel Aviv",
		"relocate": "no"
	}`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, c.YearsExperience["python"])
	assert.Equal(t, 30000, c.SalaryExpectation["monthly_net_nis"])
	assert.Equal(t, "Tel Aviv", c.PreferredLocation)
	assert.Equal(t, "no", c.Extra["relocate"])
}

func TestLoad_YAML(t *testing.T) {
	path := writeProfile(t, "profile.yaml", `
years_experience:
  go: 3
notice_period_days: 14
languages:
  english: fluent
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, c.YearsExperience["go"])
	assert.Equal(t, 14, c.NoticePeriodDays)

	got, ok := c.Get("languages.english")
	require.True(t, ok)
	assert.Equal(t, "fluent", got)
}

func TestLoad_RejectsOutOfRangeYears(t *testing.T) {
	path := writeProfile(t, "profile.json", `{"years_experience": {"python": 99}}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsNegativeSalary(t *testing.T) {
	path := writeProfile(t, "profile.json", `{"salary_expectation": {"monthly_net_nis": -1}}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsWrongType(t *testing.T) {
	path := writeProfile(t, "profile.json", `{"years_experience": {"python": "six"}}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeProfile(t, "profile.json", `{"years_experience":`)

	_, err := Load(path)
	assert.Error(t, err)
}
