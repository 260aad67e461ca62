package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/RichardoC/medi-assist/internal/models"
)

// Event names on the realtime connection.
const (
	EventBotReady       = "bot_ready"
	EventTypingStart    = "typing_start"
	EventTypingEnd      = "typing_end"
	EventReceiveMessage = "receive_message"
	EventErrorMessage   = "error_message"
	EventPongBot        = "pong_bot"

	EventSendMessage = "send_message"
	EventPingBot     = "ping_bot"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Frame is the envelope for every message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Realtime serves the WebSocket front door. Messages on one connection are
// handled concurrently and may complete out of order.
type Realtime struct {
	gen      Generator
	upgrader websocket.Upgrader
	logger   *zap.Logger
	now      func() time.Time

	pingInterval time.Duration
	pongWait     time.Duration
}

func NewRealtime(gen Generator, origins OriginAllowList, logger *zap.Logger) *Realtime {
	return &Realtime{
		gen: gen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return origins.Allows(r.Header.Get("Origin"))
			},
		},
		logger:       logger,
		now:          time.Now,
		pingInterval: pingInterval,
		pongWait:     pongWait,
	}
}

// socket serializes writes; gorilla allows one concurrent writer per connection.
type socket struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (s *socket) emit(event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(outFrame{Event: event, Data: data}); err != nil {
		s.logger.Warn("ws write failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (rt *Realtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		rt.logger.Warn("ws upgrade failed", zap.Error(err), zap.String("origin", r.Header.Get("Origin")))
		return
	}

	s := &socket{id: uuid.NewString(), conn: conn}
	s.logger = rt.logger.With(zap.String("conn_id", s.id))
	s.logger.Info("Socket connected")

	var wg conc.WaitGroup
	done := make(chan struct{})
	defer func() {
		close(done)
		// in-flight generations finish before the connection is torn down
		if rec := wg.WaitAndRecover(); rec != nil {
			s.logger.Error("ws handler panicked", zap.String("panic", rec.String()))
		}
		_ = conn.Close()
	}()

	s.emit(EventBotReady, map[string]any{
		"message":      "GENA is ready to help!",
		"capabilities": []string{"General Q&A", "Problem Solving", "Creative Writing", "Technical Help"},
		"timestamp":    isoTime(rt.now()),
	})

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(rt.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(rt.pongWait))
	})
	wg.Go(func() { rt.keepAlive(s, done) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("Socket disconnected", zap.Error(err))
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Warn("Malformed frame", zap.Error(err))
			continue
		}

		switch f.Event {
		case EventSendMessage:
			payload := f.Data
			wg.Go(func() { rt.handleSendMessage(r.Context(), s, payload) })
		case EventPingBot:
			s.emit(EventPongBot, map[string]any{"timestamp": isoTime(rt.now())})
		default:
			s.logger.Debug("Ignoring unknown event", zap.String("event", f.Event))
		}
	}
}

func (rt *Realtime) keepAlive(s *socket, done <-chan struct{}) {
	t := time.NewTicker(rt.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := s.ping(); err != nil {
				return
			}
		}
	}
}

func (rt *Realtime) handleSendMessage(ctx context.Context, s *socket, payload json.RawMessage) {
	var req ChatRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			req = ChatRequest{}
		}
	}

	message, verr := ValidateMessage(req.Message)
	if verr != nil {
		s.emit(EventErrorMessage, errorBody{Error: verr.Message, Code: verr.Code})
		return
	}

	s.emit(EventTypingStart, nil)
	reply, err := rt.generate(ctx, req.toGenerationRequest(message))
	s.emit(EventTypingEnd, nil)

	if err != nil {
		s.logger.Error("Realtime generation error", zap.Error(err))
		f := failureFor(err)
		s.emit(EventErrorMessage, errorBody{Error: f.message, Code: f.code})
		return
	}
	s.emit(EventReceiveMessage, newReplyBody(reply))
}

// generate turns a panic in the pipeline into an ordinary error so the client
// still sees typing_end and an error_message.
func (rt *Realtime) generate(ctx context.Context, req models.GenerationRequest) (reply *models.Reply, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generation panicked: %v", rec)
		}
	}()
	return rt.gen.Generate(ctx, req)
}
