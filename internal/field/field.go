// Package field defines form-field kinds and the signature used to match
// fields against stored rules.
package field

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/apply-agent/internal/normalize"
)

// Kind identifies the interaction model of a form field.
type Kind string

// Known field kinds.
const (
	KindRadio       Kind = "radio"
	KindCheckbox    Kind = "checkbox"
	KindSelect      Kind = "select"
	KindCombobox    Kind = "combobox"
	KindText        Kind = "text"
	KindNumber      Kind = "number"
	KindMultiselect Kind = "multiselect"
)

// Kinds lists every known field kind.
func Kinds() []Kind {
	return []Kind{
		KindRadio, KindCheckbox, KindSelect, KindCombobox,
		KindText, KindNumber, KindMultiselect,
	}
}

// Valid reports whether k is a known field kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRadio, KindCheckbox, KindSelect, KindCombobox,
		KindText, KindNumber, KindMultiselect:
		return true
	}
	return false
}

// Signature identifies a form field for rule matching. QuestionNorm is the
// normalized question text; OptionsFingerprint is empty for fields without
// options.
type Signature struct {
	Kind               Kind
	QuestionNorm       string
	OptionsFingerprint string
	Site               string
	FormKind           string
	Locale             string
}

// Build constructs a Signature from raw field data, normalizing the question
// and fingerprinting the options.
func Build(kind Kind, question string, options []string, site, formKind, locale string, n *normalize.Normalizer) (Signature, error) {
	if !kind.Valid() {
		return Signature{}, fmt.Errorf("unknown field kind %q", kind)
	}
	return Signature{
		Kind:               kind,
		QuestionNorm:       n.Normalize(question),
		OptionsFingerprint: Fingerprint(options, n),
		Site:               site,
		FormKind:           formKind,
		Locale:             locale,
	}, nil
}

// Fingerprint returns a stable digest of an option list, insensitive to
// order, case, and markup. Empty input yields "".
func Fingerprint(options []string, n *normalize.Normalizer) string {
	if len(options) == 0 {
		return ""
	}
	normalized := n.NormalizeOptions(options)
	sort.Strings(normalized)
	sum := sha1.Sum([]byte(strings.Join(normalized, "|")))
	return "sha1:" + hex.EncodeToString(sum[:])
}
