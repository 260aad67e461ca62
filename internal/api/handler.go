package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/medi-assist/internal/models"
	"github.com/RichardoC/medi-assist/internal/ratelimit"
)

const (
	botName    = "GENA"
	botVersion = "2.0.0"

	maxBodyBytes = 1 << 20
)

// Generator is the slice of llm.Service the transports depend on.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.Reply, error)
	Configured() bool
}

// UsageReporter exposes admission window state to /api/usage.
type UsageReporter interface {
	Snapshot() ratelimit.Usage
}

type Handler struct {
	gen    Generator
	usage  UsageReporter
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(gen Generator, usage UsageReporter, logger *zap.Logger) *Handler {
	return &Handler{
		gen:    gen,
		usage:  usage,
		logger: logger,
		now:    time.Now,
	}
}

// ChatRequest is shared by POST /api/chat and the send_message event. Fields
// stay loosely typed so bad input becomes a validation error instead of a decode error.
type ChatRequest struct {
	Message             any             `json:"message"`
	ConversationHistory json.RawMessage `json:"conversationHistory,omitempty"`
	UserID              any             `json:"userId,omitempty"`
}

func (c ChatRequest) toGenerationRequest(message string) models.GenerationRequest {
	req := models.GenerationRequest{
		UserMessage: message,
		History:     models.ParseHistory(c.ConversationHistory),
	}
	if c.UserID != nil {
		req.UserID = fmt.Sprint(c.UserID)
	}
	return req
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		// anything this large cannot hold a message within the length limit
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			verr := messageTooLong()
			writeJSON(w, h.logger, http.StatusBadRequest, errorBody{Error: verr.Message, Code: verr.Code})
			return
		}
		h.logger.Debug("Invalid chat request body", zap.Error(err))
		req = ChatRequest{}
	}

	message, verr := ValidateMessage(req.Message)
	if verr != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, errorBody{Error: verr.Message, Code: verr.Code})
		return
	}

	reply, err := h.gen.Generate(r.Context(), req.toGenerationRequest(message))
	if err != nil {
		h.logger.Error("Error in chat endpoint", zap.Error(err), zap.String("path", r.URL.Path))
		f := failureFor(err)
		writeJSON(w, h.logger, http.StatusInternalServerError, errorBody{
			Error:     f.message,
			Code:      f.code,
			Timestamp: isoTime(h.now()),
		})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, newReplyBody(reply))
}

var capabilities = []string{
	"General Q&A",
	"Problem Solving",
	"Creative Writing",
	"Technical Help",
	"Educational Support",
	"Conversation",
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	aiService := "Not Configured"
	if h.gen.Configured() {
		aiService = "Connected"
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"status":       "OK",
		"timestamp":    isoTime(h.now()),
		"service":      "GENA - General Purpose AI Assistant",
		"version":      botVersion,
		"ai_service":   aiService,
		"capabilities": capabilities,
	})
}

func (h *Handler) Usage(w http.ResponseWriter, _ *http.Request) {
	u := h.usage.Snapshot()

	status := "OK"
	if u.RequestsLastMinute >= u.Limit {
		status = "APPROACHING_LIMIT"
	}
	pace := "Rate limit OK"
	if u.RequestsLastMinute > 8 {
		pace = "Slow down requests"
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"requests_last_minute": u.RequestsLastMinute,
		"total_requests_today": u.Total,
		"rate_limit_status":    status,
		"next_reset":           isoTime(u.NextReset),
		"recommendations": []string{
			pace,
			"Use Gemini Flash for better quota efficiency",
			"Keep messages concise to reduce token usage",
		},
	})
}

func (h *Handler) BotInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"name":        botName,
		"version":     botVersion,
		"description": "General Purpose AI Assistant",
		"capabilities": []string{
			"Answer questions on any topic",
			"Provide explanations and tutorials",
			"Help with problem-solving",
			"Assist with creative writing",
			"Offer educational support",
			"Engage in meaningful conversation",
		},
		"limitations": []string{
			"Cannot browse the internet for real-time information",
			"Knowledge cutoff may apply to very recent events",
			"Cannot perform actions outside of conversation",
			"Should not replace professional advice for medical/legal/financial matters",
		},
		"last_updated": isoTime(h.now()),
	})
}

var availableEndpoints = []string{"/api/chat", "/api/health", "/api/usage", "/api/bot-info"}

func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusNotFound, map[string]any{
		"error":               "Endpoint not found",
		"code":                CodeNotFound,
		"available_endpoints": availableEndpoints,
	})
}
