package models

import (
	"strings"

	accountmodels "bankops/internal/account/models"
)

// FieldComparison pairs one declared profile field with its external
// counterpart for the review screen. Mismatches are surfaced, never
// auto-resolved; the reviewer decides.
type FieldComparison struct {
	Field    string `json:"field"`
	Declared string `json:"declared"`
	External string `json:"external"`
	Match    bool   `json:"match"`
}

// FieldsMatch reports whether two identity fields are equal after trimming
// and case-folding. This is a contract with the review UI, not a heuristic.
func FieldsMatch(declared, external string) bool {
	return strings.EqualFold(strings.TrimSpace(declared), strings.TrimSpace(external))
}

// NormalizeGender maps the synonym sets {male, m} and {female, f} onto the
// canonical MALE/FEMALE values before comparison. Unrecognized values pass
// through upper-cased so they surface as mismatches, not errors.
func NormalizeGender(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return "MALE"
	case "female", "f":
		return "FEMALE"
	default:
		return strings.ToUpper(strings.TrimSpace(s))
	}
}

// Compare builds the field-by-field view of declared profile data against
// the external identity payload.
func Compare(declared accountmodels.Profile, external FaydaIdentity) []FieldComparison {
	genderDeclared := NormalizeGender(declared.Gender)
	genderExternal := NormalizeGender(external.Gender)
	return []FieldComparison{
		{
			Field:    "full_name",
			Declared: declared.FullName,
			External: external.FullName,
			Match:    FieldsMatch(declared.FullName, external.FullName),
		},
		{
			Field:    "gender",
			Declared: declared.Gender,
			External: external.Gender,
			Match:    FieldsMatch(genderDeclared, genderExternal),
		},
		{
			Field:    "birth_date",
			Declared: declared.BirthDate,
			External: external.BirthDate,
			Match:    FieldsMatch(declared.BirthDate, external.BirthDate),
		},
		{
			Field:    "address",
			Declared: declared.Address,
			External: external.Address,
			Match:    FieldsMatch(declared.Address, external.Address),
		},
		{
			Field:    "phone_number",
			Declared: declared.PhoneNumber,
			External: external.PhoneNumber,
			Match:    FieldsMatch(declared.PhoneNumber, external.PhoneNumber),
		},
	}
}
