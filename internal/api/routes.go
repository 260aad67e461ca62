package api

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter mounts every endpoint behind the shared middleware chain.
func NewRouter(h *Handler, rt *Realtime, origins OriginAllowList, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.HandleChat)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/usage", h.Usage)
	mux.HandleFunc("GET /api/bot-info", h.BotInfo)
	mux.Handle("GET /socket", rt)
	mux.HandleFunc("/", h.NotFound)

	return Recover(logger, AccessLog(logger, CORS(origins, mux)))
}
