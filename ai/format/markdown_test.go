package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains []string
		excludes []string
	}{
		{
			name:     "plain text passes through",
			source:   "Personal loans require a minimum credit score of 650.",
			contains: []string{"Personal loans require a minimum credit score of 650."},
		},
		{
			name:     "heading markers stripped",
			source:   "# Loan Requirements\n\nMinimum credit score: 650",
			contains: []string{"Loan Requirements", "Minimum credit score: 650"},
			excludes: []string{"#"},
		},
		{
			name:     "emphasis stripped",
			source:   "Rates are **variable** and reviewed *quarterly*.",
			contains: []string{"Rates are variable and reviewed quarterly."},
			excludes: []string{"*"},
		},
		{
			name:     "link text kept, syntax dropped",
			source:   "See [our rates page](https://bank.example/rates) for details.",
			contains: []string{"our rates page"},
			excludes: []string{"](", "https://bank.example/rates"},
		},
		{
			name:     "list markers stripped",
			source:   "- proof of income\n- government ID\n- bank statements",
			contains: []string{"proof of income", "government ID", "bank statements"},
			excludes: []string{"- "},
		},
		{
			name:     "fenced code retained",
			source:   "Transfer format:\n\n```\nIBAN: DE00 0000\n```\n",
			contains: []string{"IBAN: DE00 0000"},
			excludes: []string{"```"},
		},
		{
			name:   "empty input",
			source: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainText(tt.source)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, banned := range tt.excludes {
				assert.NotContains(t, got, banned)
			}
			if tt.source == "" {
				assert.Empty(t, got)
			}
		})
	}
}

func TestPlainText_NoLeadingOrTrailingWhitespace(t *testing.T) {
	got := PlainText("\n\n# Heading\n\nBody text.\n\n")
	assert.Equal(t, got, strings.TrimSpace(got))
}
