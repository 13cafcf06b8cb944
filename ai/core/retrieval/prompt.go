package retrieval

import (
	"fmt"
	"strings"
)

// Prompt is the system and user message pair handed to the generation model.
type Prompt struct {
	System string
	User   string
}

// systemPrompt establishes the banking persona and the compliance rule that
// the model must admit missing information rather than fabricate it.
const systemPrompt = `You are a knowledgeable banking and financial services assistant.
Use the provided context to answer customer questions accurately and helpfully.

Guidelines:
- Provide specific, actionable information based on the context
- Include relevant details like requirements, rates, or processes
- If information is not in the context, say so clearly
- Maintain a professional, helpful tone
- Cite specific policies or requirements when applicable
- For sensitive financial matters, recommend speaking with a specialist`

// BuildPrompt assembles the context block from retrieved documents in rank
// order and pairs it with the customer question. Ordering matters: it is the
// model's primary relevance signal.
//
// With no results the user prompt says so explicitly, instructing the model
// to admit the gap instead of answering from unguided knowledge.
func BuildPrompt(query string, results []Result) Prompt {
	if len(results) == 0 {
		return Prompt{
			System: systemPrompt,
			User: fmt.Sprintf(`No relevant context was found in the knowledge base for this question.

Customer Question: %s

State clearly that the information is not available in our documentation and recommend contacting customer service. Do not answer from general knowledge.`, query),
		}
	}

	contextParts := make([]string, 0, len(results))
	for _, result := range results {
		doc := result.Document
		contextParts = append(contextParts, fmt.Sprintf("Document: %s\nCategory: %s\nContent: %s",
			doc.Title, doc.Category, doc.Content))
	}

	return Prompt{
		System: systemPrompt,
		User: fmt.Sprintf(`Context Information:
%s

Customer Question: %s

Please provide a comprehensive answer based on the context above.`,
			strings.Join(contextParts, "\n\n"), query),
	}
}
