package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RichardoC/medi-assist/internal/models"
)

func TestBuildContextWithoutHistory(t *testing.T) {
	got := BuildContext("SYS", nil, "I have a headache")
	assert.Equal(t, "SYS\n\n**Current Question:**\nUser: I have a headache\n\nAssistant: ", got)
}

func TestBuildContextKeepsLastSixInOrder(t *testing.T) {
	var history []models.Turn
	for i := 1; i <= 9; i++ {
		role := models.RoleUser
		if i%2 == 0 {
			role = models.RoleAssistant
		}
		history = append(history, models.Turn{Role: role, Text: fmt.Sprintf("m%d", i)})
	}

	got := BuildContext("SYS", history, "now")

	want := "SYS\n\n**Conversation History:**\n" +
		"Assistant: m4\nUser: m5\nAssistant: m6\nUser: m7\nAssistant: m8\nUser: m9\n\n" +
		"**Current Question:**\nUser: now\n\nAssistant: "
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "m3")
}

func TestBuildContextRendersEmptyText(t *testing.T) {
	got := BuildContext("SYS", []models.Turn{{Role: models.RoleAssistant}, {Text: "hi"}}, "q")
	assert.Contains(t, got, "Assistant: \nUser: hi\n")
}

func TestBuildContextIsDeterministic(t *testing.T) {
	history := []models.Turn{{Role: models.RoleUser, Text: "a"}, {Role: models.RoleAssistant, Text: "b"}}
	first := BuildContext(SystemPrompt, history, "c")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildContext(SystemPrompt, history, "c"))
	}
	assert.True(t, strings.HasPrefix(first, SystemPrompt))
	// caller's slice is left alone
	assert.Len(t, history, 2)
}
