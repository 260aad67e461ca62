package llm

import (
	"fmt"
	"strings"

	"github.com/RichardoC/medi-assist/internal/models"
)

// HistoryTurns is how many trailing turns make it into the prompt.
const HistoryTurns = 6

// BuildContext renders the prompt sent to the backend. It is a pure function of its inputs.
func BuildContext(systemPrompt string, history []models.Turn, userMessage string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	if len(history) > 0 {
		if len(history) > HistoryTurns {
			history = history[len(history)-HistoryTurns:]
		}
		b.WriteString("**Conversation History:**\n")
		for _, t := range history {
			role := t.Role
			if role == "" {
				role = models.RoleUser
			}
			fmt.Fprintf(&b, "%s: %s\n", role, t.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "**Current Question:**\nUser: %s\n\nAssistant: ", userMessage)
	return b.String()
}
