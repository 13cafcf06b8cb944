package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/bankrag/ai/core/llm"
	"github.com/hrygo/bankrag/ai/core/retrieval"
	"github.com/hrygo/bankrag/store"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Chat(_ context.Context, _ []llm.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Warmup(_ context.Context) {}

func loanResults() []retrieval.Result {
	return []retrieval.Result{
		{
			Document: &store.Document{
				ID:       "doc_loans",
				Title:    "Personal Loan Requirements",
				Content:  "Minimum credit score of 650, proof of income, and employment history.",
				Category: store.CategoryLoans,
				Source:   "loan_policy",
			},
			Score: 0.87,
			Rank:  1,
		},
	}
}

func TestGenerate_UsesLLMWhenAvailable(t *testing.T) {
	fake := &fakeLLM{reply: "  To qualify for a personal loan you need a credit score of at least 650.  "}
	g := NewGenerator(fake)

	results := loanResults()
	gen := g.Generate(context.Background(), retrieval.BuildPrompt("loan requirements?", results), results)

	assert.False(t, gen.Fallback)
	assert.Equal(t, "To qualify for a personal loan you need a credit score of at least 650.", gen.Text)
	assert.Equal(t, 1, fake.calls)
}

func TestGenerate_FallsBackOnLLMError(t *testing.T) {
	fake := &fakeLLM{err: errors.New("rate limited")}
	g := NewGenerator(fake)

	results := loanResults()
	gen := g.Generate(context.Background(), retrieval.BuildPrompt("loan requirements?", results), results)

	assert.True(t, gen.Fallback)
	assert.Contains(t, gen.Text, "temporarily unavailable")
	assert.Contains(t, gen.Text, "Personal Loan Requirements")
	assert.Contains(t, gen.Text, "Minimum credit score of 650")
}

func TestGenerate_NilServiceAlwaysFallsBack(t *testing.T) {
	g := NewGenerator(nil)

	results := loanResults()
	gen := g.Generate(context.Background(), retrieval.BuildPrompt("loan requirements?", results), results)

	assert.True(t, gen.Fallback)
	assert.Contains(t, gen.Text, "Personal Loan Requirements")
}

func TestFallbackAnswer_NoResults(t *testing.T) {
	text := fallbackAnswer(nil)
	assert.Contains(t, text, "couldn't find relevant information")
	assert.Contains(t, text, "customer service")
}

func TestFallbackAnswer_TruncatesLongContent(t *testing.T) {
	long := strings.Repeat("Overdraft fees apply to all checking accounts. ", 20)
	results := []retrieval.Result{
		{
			Document: &store.Document{
				Title:    "Fee Schedule",
				Content:  long,
				Category: store.CategoryRates,
			},
			Score: 0.5,
			Rank:  1,
		},
	}

	text := fallbackAnswer(results)
	assert.Contains(t, text, "...")
	assert.NotContains(t, text, long)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "toolongfor...", truncate("toolongforthis", 10))
}
