package core

import (
	"fmt"
	"strings"
)

// SystemInstructions is the assistant persona and grounding guardrail placed
// at the top of every prompt.
const SystemInstructions = "You are Teddy, a friendly and knowledgeable personal finance assistant. " +
	"Answer questions using the expense data provided in the context. " +
	"Use exact numbers from the data when available. " +
	"If the answer is not in the provided data, say that you don't know rather than making something up. " +
	"Be encouraging but honest, and keep answers conversational and concise."

// AssemblePrompt builds the completion prompt in fixed order: system
// instructions, context bundle, retained history window (oldest first), new
// user message. If the result exceeds maxChars, history turns are trimmed
// from the oldest end until it fits; the instructions, the bundle, and the
// new message are never trimmed.
func AssemblePrompt(instructions string, bundle ContextBundle, history []ConversationTurn, userMessage string, maxChars int) string {
	for start := 0; ; start++ {
		prompt := renderPrompt(instructions, bundle, history[min(start, len(history)):], userMessage)
		if len(prompt) <= maxChars || start >= len(history) {
			return prompt
		}
	}
}

func renderPrompt(instructions string, bundle ContextBundle, history []ConversationTurn, userMessage string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	b.WriteString(bundle.Render())

	if len(history) > 0 {
		b.WriteString("\n\n=== CONVERSATION SO FAR ===")
		for _, turn := range history {
			label := "Human"
			if turn.Role == RoleAssistant {
				label = "Assistant"
			}
			fmt.Fprintf(&b, "\n%s: %s", label, turn.Content)
		}
	}

	fmt.Fprintf(&b, "\n\nQuestion: %s", userMessage)
	return b.String()
}
