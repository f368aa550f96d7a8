package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "lowercases and dedupes",
			input:    []string{"Account-Creator", "account-creator", "ACCOUNT-CREATOR"},
			expected: []string{"account-creator"},
		},
		{
			name:     "trims padding from claims",
			input:    []string{"  account-approver ", "kyc-reviewer  "},
			expected: []string{"account-approver", "kyc-reviewer"},
		},
		{
			name:     "drops empties, first occurrence wins",
			input:    []string{"KYC-Reviewer", "", "  ", "account-creator", "kyc-reviewer"},
			expected: []string{"kyc-reviewer", "account-creator"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DedupeAndTrimLower(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
