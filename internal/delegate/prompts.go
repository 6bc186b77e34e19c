package delegate

import (
	"fmt"
	"strings"
)

func buildDecidePrompt(f FieldInfo, profileSummary, jobContext string) string {
	var b strings.Builder

	b.WriteString("You are filling out a job application form on behalf of a candidate.\n")
	b.WriteString("Answer the form field below using only the candidate profile.\n\n")

	fmt.Fprintf(&b, "Field kind: %s\n", f.Kind)
	fmt.Fprintf(&b, "Question: %s\n", f.Question)
	if len(f.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(f.Options, " | "))
	}
	fmt.Fprintf(&b, "Required: %t\n\n", f.Required)

	b.WriteString("Candidate profile:\n")
	b.WriteString(profileSummary)
	b.WriteString("\n\n")

	if jobContext != "" {
		b.WriteString("Job context:\n")
		b.WriteString(jobContext)
		b.WriteString("\n\n")
	}

	b.WriteString(`Respond with a single JSON object:
{
  "decision": "select" | "text" | "number" | "check" | "skip",
  "value": <the answer; for "select" it must be one of the options verbatim; omit for "skip">,
  "confidence": <0.0 to 1.0>
}
Use "skip" when the profile does not contain enough information to answer truthfully.
Never invent facts about the candidate.`)

	return b.String()
}

func buildGenerateRulePrompt(f FieldInfo, value any, profileSummary, jobContext string) string {
	var b strings.Builder

	b.WriteString("A job application field was just answered. Propose a reusable rule\n")
	b.WriteString("that would answer the same kind of question automatically next time.\n\n")

	fmt.Fprintf(&b, "Field kind: %s\n", f.Kind)
	fmt.Fprintf(&b, "Question: %s\n", f.Question)
	if len(f.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(f.Options, " | "))
	}
	fmt.Fprintf(&b, "Answer given: %v\n\n", value)

	b.WriteString("Candidate profile:\n")
	b.WriteString(profileSummary)
	b.WriteString("\n\n")

	if jobContext != "" {
		b.WriteString("Job context:\n")
		b.WriteString(jobContext)
		b.WriteString("\n\n")
	}

	b.WriteString(`Respond with a single JSON object:
{
  "q_pattern": <a case-insensitive regular expression matching the normalized question text>,
  "strategy": {
    "kind": "literal" | "profile_key" | "numeric_from_profile" | "one_of_options" | "one_of_options_from_profile" | "salary_by_currency",
    "params": <params for that strategy kind>
  },
  "confidence": <0.0 to 1.0>
}
Params per kind:
- "literal": {"value": <answer>}
- "profile_key" / "numeric_from_profile": {"key": "<dotted.profile.path>"}
- "one_of_options": {"preferred": ["<value>", ...]} and/or {"synonyms": {"<label>": ["<alias>", ...]}}
- "one_of_options_from_profile": {"key": "<dotted.profile.path>", "synonyms": {"<profile value>": ["<alias>", ...]}}
- "salary_by_currency": {"key_template": "<path.with.{currency}>", "default_currency": "<currency>"}
Prefer profile-backed strategies over "literal". Make q_pattern general enough
to match paraphrases but specific enough not to match unrelated questions.`)

	return b.String()
}
