package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxMessageLength is counted in UTF-16 code units, the same way the chat widget counts.
const MaxMessageLength = 4000

type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// Turn is one message of a conversation as seen by the context builder.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// GenerationRequest is a validated chat message plus the history the client sent along.
type GenerationRequest struct {
	UserMessage string
	History     []Turn
	UserID      string
}

// Reply is a successful generation.
type Reply struct {
	Text      string
	Timestamp time.Time
	ID        string
}

// ParseHistory converts the loosely shaped conversationHistory field into turns.
// Anything that is not a JSON array yields no history.
func ParseHistory(raw json.RawMessage) []Turn {
	if len(raw) == 0 {
		return nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil
	}
	turns := make([]Turn, 0, len(records))
	for _, rec := range records {
		var fields map[string]any
		// Non-object entries still count as a turn, just an empty one.
		_ = json.Unmarshal(rec, &fields)
		turns = append(turns, turnFromFields(fields))
	}
	return turns
}

func turnFromFields(fields map[string]any) Turn {
	t := Turn{Role: RoleUser}
	if role := stringField(fields, "role"); role != "" {
		t.Role = Role(role)
	} else if isUser, ok := fields["isUser"].(bool); ok && !isUser {
		t.Role = RoleAssistant
	}
	t.Text = stringField(fields, "text")
	if t.Text == "" {
		t.Text = stringField(fields, "message")
	}
	return t
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
		return "true"
	case float64:
		if v == 0 {
			return ""
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
