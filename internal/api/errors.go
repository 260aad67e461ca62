package api

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/RichardoC/medi-assist/internal/llm"
	"github.com/RichardoC/medi-assist/internal/models"
)

const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeMessageTooLong = "MESSAGE_TOO_LONG"
	CodeConfigError    = "CONFIG_ERROR"
	CodeRateLimit      = "RATE_LIMIT"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotFound       = "NOT_FOUND"
)

// isoMillis matches the browser's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func isoTime(t time.Time) string { return t.UTC().Format(isoMillis) }

// ValidationError is a client mistake caught before the generation service is called.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateMessage accepts a decoded JSON value and returns it as a message.
func ValidateMessage(v any) (string, *ValidationError) {
	msg, ok := v.(string)
	if !ok || msg == "" {
		return "", &ValidationError{Code: CodeInvalidMessage, Message: "Message is required and must be a string"}
	}
	if len(utf16.Encode([]rune(msg))) > models.MaxMessageLength {
		return "", messageTooLong()
	}
	return msg, nil
}

func messageTooLong() *ValidationError {
	return &ValidationError{Code: CodeMessageTooLong, Message: "Message too long. Please limit to 4000 characters."}
}

type failure struct {
	code    string
	message string
}

var defaultFailure = failure{
	code:    CodeInternalError,
	message: "I'm having trouble processing your request right now. Please try again in a moment.",
}

var failures = map[llm.Kind]failure{
	llm.KindNotConfigured: {
		code:    CodeConfigError,
		message: "AI service configuration issue. Please contact support.",
	},
	llm.KindRateLimited: {
		code:    CodeRateLimit,
		message: "I'm getting a lot of requests right now. Please wait a moment and try again.",
	},
}

// failureFor picks the client-facing code and message for a generation error.
func failureFor(err error) failure {
	if f, ok := failures[llm.KindOf(err)]; ok {
		return f
	}
	return defaultFailure
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp,omitempty"`
}

type replyBody struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

func newReplyBody(r *models.Reply) replyBody {
	return replyBody{
		Response:  r.Text,
		Timestamp: isoTime(r.Timestamp),
		MessageID: r.ID,
		Status:    "success",
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
