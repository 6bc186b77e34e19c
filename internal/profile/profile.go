// Package profile defines the candidate profile that answers are resolved
// against.
package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Candidate is the structured profile of the person applying. Known answer
// data lives in the typed fields; anything else from the profile file lands
// in Extra and stays reachable through Get.
type Candidate struct {
	// YearsExperience maps a canonical skill name to years, e.g.
	// {"python": 6, "go": 3}.
	YearsExperience map[string]int `json:"years_experience" validate:"dive,gte=0,lte=50"`
	// SalaryExpectation maps an expectation key to an amount, e.g.
	// {"monthly_net_nis": 30000}.
	SalaryExpectation map[string]int    `json:"salary_expectation" validate:"dive,gte=0"`
	WorkAuthorization map[string]string `json:"work_authorization"`
	Links             map[string]string `json:"links"`

	NoticePeriodDays  int    `json:"notice_period_days" validate:"gte=0,lte=365"`
	PreferredLocation string `json:"preferred_location"`
	Phone             string `json:"phone"`
	ShortBioEN        string `json:"short_bio_en"`
	ShortBioRU        string `json:"short_bio_ru"`

	// Extra holds profile keys the struct does not model.
	Extra map[string]any `json:"-"`
}

// Get resolves a dotted path like "years_experience.python" or
// "salary_expectation.monthly_net_nis" against the profile. Unknown paths
// fall through to Extra. The second return is false when nothing is found.
func (c *Candidate) Get(path string) (any, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	parts := strings.SplitN(path, ".", 2)
	head := parts[0]
	rest := ""
	if len(parts) == 2 {
		rest = parts[1]
	}

	switch head {
	case "years_experience":
		return lookupIntMap(c.YearsExperience, rest)
	case "salary_expectation":
		return lookupIntMap(c.SalaryExpectation, rest)
	case "work_authorization":
		return lookupStringMap(c.WorkAuthorization, rest)
	case "links":
		return lookupStringMap(c.Links, rest)
	case "notice_period_days":
		return c.NoticePeriodDays, rest == ""
	case "preferred_location":
		return strOrNothing(c.PreferredLocation, rest)
	case "phone":
		return strOrNothing(c.Phone, rest)
	case "short_bio_en":
		return strOrNothing(c.ShortBioEN, rest)
	case "short_bio_ru":
		return strOrNothing(c.ShortBioRU, rest)
	}

	return lookupExtra(c.Extra, path)
}

func lookupIntMap(m map[string]int, key string) (any, bool) {
	if key == "" {
		if m == nil {
			return nil, false
		}
		return m, true
	}
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return v, true
}

func lookupStringMap(m map[string]string, key string) (any, bool) {
	if key == "" {
		if m == nil {
			return nil, false
		}
		return m, true
	}
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return v, true
}

func strOrNothing(v, rest string) (any, bool) {
	if rest != "" || v == "" {
		return nil, false
	}
	return v, true
}

// lookupExtra walks a dotted path through nested maps in Extra.
func lookupExtra(extra map[string]any, path string) (any, bool) {
	var current any = extra
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Summary renders a compact plain-text view of the profile for reasoning
// prompts. Map keys are sorted for stable output.
func (c *Candidate) Summary() string {
	var b strings.Builder

	if len(c.YearsExperience) > 0 {
		b.WriteString("Years of experience:\n")
		for _, k := range sortedKeys(c.YearsExperience) {
			fmt.Fprintf(&b, "  %s: %d\n", k, c.YearsExperience[k])
		}
	}
	if len(c.SalaryExpectation) > 0 {
		b.WriteString("Salary expectation:\n")
		for _, k := range sortedKeys(c.SalaryExpectation) {
			fmt.Fprintf(&b, "  %s: %d\n", k, c.SalaryExpectation[k])
		}
	}
	if len(c.WorkAuthorization) > 0 {
		b.WriteString("Work authorization:\n")
		for _, k := range sortedKeys(c.WorkAuthorization) {
			fmt.Fprintf(&b, "  %s: %s\n", k, c.WorkAuthorization[k])
		}
	}
	if c.NoticePeriodDays > 0 {
		fmt.Fprintf(&b, "Notice period: %d days\n", c.NoticePeriodDays)
	}
	if c.PreferredLocation != "" {
		fmt.Fprintf(&b, "Preferred location: %s\n", c.PreferredLocation)
	}
	if c.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	}
	if c.ShortBioEN != "" {
		fmt.Fprintf(&b, "Bio: %s\n", c.ShortBioEN)
	}
	if len(c.Extra) > 0 {
		b.WriteString("Other:\n")
		for _, k := range sortedKeys(c.Extra) {
			fmt.Fprintf(&b, "  %s: %v\n", k, c.Extra[k])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
