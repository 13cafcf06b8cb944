package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/bankrag/ai/core/llm"
	"github.com/hrygo/bankrag/ai/core/retrieval"
)

// Generation is the typed outcome of a generation call. Fallback marks text
// produced without the language model, so callers can distinguish degraded
// operation from a genuine answer.
type Generation struct {
	Text     string
	Fallback bool
}

// Generator produces the final answer text from a prompt, degrading to a
// deterministic context summary when the language model is unavailable.
type Generator struct {
	llm llm.Service // nil when no generation provider is configured
}

// NewGenerator creates a Generator. A nil service is allowed; every call
// then takes the fallback path.
func NewGenerator(service llm.Service) *Generator {
	return &Generator{llm: service}
}

// Generate invokes the language model with the prompt. Any provider failure
// (timeout, auth error, rate limit) yields a fallback-tagged generation
// built from the retrieved context, never an error.
func (g *Generator) Generate(ctx context.Context, prompt retrieval.Prompt, results []retrieval.Result) Generation {
	if g.llm == nil {
		slog.Debug("generator: no LLM configured, using fallback answer")
		return Generation{Text: fallbackAnswer(results), Fallback: true}
	}

	content, err := g.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(prompt.System),
		llm.UserMessage(prompt.User),
	})
	if err != nil {
		slog.Warn("generator: LLM call failed, using fallback answer", "error", err)
		return Generation{Text: fallbackAnswer(results), Fallback: true}
	}

	return Generation{Text: strings.TrimSpace(content)}
}

// fallbackAnswer summarizes the top retrieved document so degraded operation
// still surfaces the relevant policy text instead of an empty string.
func fallbackAnswer(results []retrieval.Result) string {
	if len(results) == 0 {
		return "I couldn't find relevant information for your question. Please contact customer service."
	}

	top := results[0].Document
	return fmt.Sprintf(`Our assistant is temporarily unavailable, so here is the most relevant excerpt from our documentation.

**%s** (Category: %s)

%s

For more detailed information and personalized assistance, please speak with one of our banking specialists.`,
		top.Title, top.Category, truncate(top.Content, 300))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
