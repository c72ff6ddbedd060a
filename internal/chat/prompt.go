package chat

import (
	"strings"

	"github.com/mnemograph/mnemo/internal/engine"
	"github.com/mnemograph/mnemo/internal/llm"
)

const basePrompt = "You are a helpful assistant with access to the user's memory graph. Be concise and clear in your responses."

// lastUserMessage returns the content of the most recent user turn,
// which drives memory retrieval.
func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// memoryBlock renders retrieved notes as a prompt section, best match
// first.
func memoryBlock(results []engine.SearchResult) string {
	var b strings.Builder
	b.WriteString("Relevant notes from the user's memory:\n")
	for _, r := range results {
		b.WriteString("- ")
		if r.Node.Title != "" {
			b.WriteString(r.Node.Title)
			b.WriteString(": ")
		}
		b.WriteString(r.Node.Content)
		b.WriteString("\n")
	}
	return b.String()
}
