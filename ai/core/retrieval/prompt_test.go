package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/bankrag/store"
)

func TestBuildPrompt_WithResults(t *testing.T) {
	results := []Result{
		{
			Document: &store.Document{
				Title:    "Personal Loan Requirements",
				Content:  "Minimum credit score of 650.",
				Category: store.CategoryLoans,
			},
			Score: 0.92,
			Rank:  1,
		},
		{
			Document: &store.Document{
				Title:    "Credit Card Application Process",
				Content:  "Apply online in minutes.",
				Category: store.CategoryCredit,
			},
			Score: 0.41,
			Rank:  2,
		},
	}

	prompt := BuildPrompt("What do I need for a personal loan?", results)

	assert.Contains(t, prompt.System, "banking and financial services assistant")
	assert.Contains(t, prompt.System, "If information is not in the context, say so clearly")

	assert.Contains(t, prompt.User, "What do I need for a personal loan?")
	assert.Contains(t, prompt.User, "Personal Loan Requirements")
	assert.Contains(t, prompt.User, "Minimum credit score of 650.")
	assert.Contains(t, prompt.User, "Category: loans")

	// Rank order is preserved in the context block.
	first := strings.Index(prompt.User, "Personal Loan Requirements")
	second := strings.Index(prompt.User, "Credit Card Application Process")
	require.Greater(t, second, first)
}

func TestBuildPrompt_NoResults(t *testing.T) {
	prompt := BuildPrompt("What is the meaning of life?", nil)

	assert.Contains(t, prompt.System, "banking and financial services assistant")
	assert.Contains(t, prompt.User, "No relevant context was found")
	assert.Contains(t, prompt.User, "What is the meaning of life?")
	assert.Contains(t, prompt.User, "Do not answer from general knowledge.")
}
