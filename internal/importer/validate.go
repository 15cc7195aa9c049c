package importer

import (
	"strings"

	"github.com/leadline/crm-cli/internal/model"
)

const minPhoneDigits = 7

// Validator applies the field-level rules that turn a RawRow into a
// Candidate. The same rules run during preview and commit so a row never
// re-classifies between the two calls.
type Validator struct {
	// CountryCode is prefixed onto bare 9-digit local numbers, e.g. "+998".
	CountryCode   string
	DefaultStatus string
	known         map[string]string // lowercased status name -> canonical name
}

// NewValidator builds a Validator from the operator-managed status list.
func NewValidator(countryCode, defaultStatus string, statuses []model.Status) Validator {
	known := make(map[string]string, len(statuses))
	for _, s := range statuses {
		known[strings.ToLower(s.Name)] = s.Name
	}
	return Validator{
		CountryCode:   countryCode,
		DefaultStatus: defaultStatus,
		known:         known,
	}
}

// Validate returns either a Candidate or a non-empty error list, never both.
// Rules run in fixed order and all failures are collected, so error output
// is deterministic for a given row.
func (v Validator) Validate(row RawRow) (*Candidate, []string) {
	var errs []string

	name := strings.TrimSpace(row.Fields[FieldName])
	if name == "" {
		errs = append(errs, "name is required")
	}

	phone, ok := v.CanonicalPhone(row.Fields[FieldPhone])
	if !ok {
		errs = append(errs, "invalid phone number")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &Candidate{
		Row:    row.Number,
		Name:   name,
		Phone:  phone,
		Source: strings.TrimSpace(row.Fields[FieldSource]),
		Status: v.resolveStatus(row.Fields[FieldStatus]),
	}, nil
}

// CanonicalPhone reduces a phone to digits plus one leading '+', the form
// used as the deduplication key. Local 9-digit numbers get the configured
// country code; 12-digit numbers that already start with the calling code
// get a bare '+'. This mirrors numbers pasted from chat apps.
func (v Validator) CanonicalPhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	plus := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits {
		return "", false
	}

	if plus {
		return "+" + digits, true
	}

	callingCode := strings.TrimPrefix(v.CountryCode, "+")
	if len(digits) == 9 {
		return v.CountryCode + digits, true
	}
	if len(digits) == 12 && strings.HasPrefix(digits, callingCode) {
		return "+" + digits, true
	}
	return "+" + digits, true
}

// resolveStatus matches a raw status against known status names. Unknown or
// absent statuses fall back to the default instead of erroring; imports
// should not fail because a spreadsheet invented a stage name.
func (v Validator) resolveStatus(raw string) string {
	raw = strings.TrimSpace(raw)
	if canonical, ok := v.known[strings.ToLower(raw)]; ok {
		return canonical
	}
	return v.DefaultStatus
}
