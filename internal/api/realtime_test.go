package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardoC/medi-assist/internal/llm"
	"github.com/RichardoC/medi-assist/internal/models"
	"github.com/RichardoC/medi-assist/internal/ratelimit"
)

type stubGenerator struct {
	gen func(ctx context.Context, req models.GenerationRequest) (*models.Reply, error)
}

func (s stubGenerator) Generate(ctx context.Context, req models.GenerationRequest) (*models.Reply, error) {
	return s.gen(ctx, req)
}

func (s stubGenerator) Configured() bool { return true }

func dialRealtime(t *testing.T, gen Generator) *websocket.Conn {
	t.Helper()
	rt := NewRealtime(gen, OriginAllowList{"http://localhost:5173"}, zap.NewNop())
	srv := httptest.NewServer(rt)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	first := readFrame(t, conn)
	require.Equal(t, EventBotReady, first.Event)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(outFrame{Event: event, Data: data}))
}

func TestRealtimeSendMessageSuccess(t *testing.T) {
	conn := dialRealtime(t, stubGenerator{gen: func(_ context.Context, req models.GenerationRequest) (*models.Reply, error) {
		return &models.Reply{Text: "echo: " + req.UserMessage, Timestamp: time.Now(), ID: "id-1"}, nil
	}})

	send(t, conn, EventSendMessage, map[string]any{"message": "I have a headache", "userId": "u1"})

	assert.Equal(t, EventTypingStart, readFrame(t, conn).Event)
	assert.Equal(t, EventTypingEnd, readFrame(t, conn).Event)

	f := readFrame(t, conn)
	require.Equal(t, EventReceiveMessage, f.Event)
	var body replyBody
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, "echo: I have a headache", body.Response)
	assert.Equal(t, "id-1", body.MessageID)
	assert.Equal(t, "success", body.Status)
}

func TestRealtimeSendMessageFailure(t *testing.T) {
	conn := dialRealtime(t, stubGenerator{gen: func(context.Context, models.GenerationRequest) (*models.Reply, error) {
		return nil, &llm.Error{Kind: llm.KindRateLimited, Message: "slow down"}
	}})

	send(t, conn, EventSendMessage, map[string]any{"message": "hi"})

	assert.Equal(t, EventTypingStart, readFrame(t, conn).Event)
	assert.Equal(t, EventTypingEnd, readFrame(t, conn).Event)

	f := readFrame(t, conn)
	require.Equal(t, EventErrorMessage, f.Event)
	var body errorBody
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, CodeRateLimit, body.Code)
}

func TestRealtimePanicStillEndsTyping(t *testing.T) {
	conn := dialRealtime(t, stubGenerator{gen: func(context.Context, models.GenerationRequest) (*models.Reply, error) {
		panic("boom")
	}})

	send(t, conn, EventSendMessage, map[string]any{"message": "hi"})

	assert.Equal(t, EventTypingStart, readFrame(t, conn).Event)
	assert.Equal(t, EventTypingEnd, readFrame(t, conn).Event)
	f := readFrame(t, conn)
	require.Equal(t, EventErrorMessage, f.Event)
	var body errorBody
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, CodeInternalError, body.Code)
}

func TestRealtimeValidationSkipsTyping(t *testing.T) {
	called := false
	conn := dialRealtime(t, stubGenerator{gen: func(context.Context, models.GenerationRequest) (*models.Reply, error) {
		called = true
		return nil, errors.New("unreachable")
	}})

	send(t, conn, EventSendMessage, map[string]any{"message": strings.Repeat("x", 4001)})
	f := readFrame(t, conn)
	require.Equal(t, EventErrorMessage, f.Event)
	var body errorBody
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, CodeMessageTooLong, body.Code)

	send(t, conn, EventSendMessage, nil)
	f = readFrame(t, conn)
	require.Equal(t, EventErrorMessage, f.Event)
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, CodeInvalidMessage, body.Code)

	// ping_bot is answered in order, proving nothing else was queued
	send(t, conn, EventPingBot, nil)
	assert.Equal(t, EventPongBot, readFrame(t, conn).Event)
	assert.False(t, called)
}

func TestRealtimeConcurrentMessagesInterleave(t *testing.T) {
	release := make(chan struct{})
	conn := dialRealtime(t, stubGenerator{gen: func(_ context.Context, req models.GenerationRequest) (*models.Reply, error) {
		if req.UserMessage == "slow" {
			<-release
		}
		return &models.Reply{Text: req.UserMessage, Timestamp: time.Now(), ID: req.UserMessage}, nil
	}})

	send(t, conn, EventSendMessage, map[string]any{"message": "slow"})
	assert.Equal(t, EventTypingStart, readFrame(t, conn).Event)

	send(t, conn, EventSendMessage, map[string]any{"message": "fast"})
	assert.Equal(t, EventTypingStart, readFrame(t, conn).Event)
	assert.Equal(t, EventTypingEnd, readFrame(t, conn).Event)
	f := readFrame(t, conn)
	require.Equal(t, EventReceiveMessage, f.Event)
	var body replyBody
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, "fast", body.Response)

	close(release)
	assert.Equal(t, EventTypingEnd, readFrame(t, conn).Event)
	f = readFrame(t, conn)
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, "slow", body.Response)
}

func TestRealtimeThroughRouterWithRealService(t *testing.T) {
	svc := llm.New(llm.BackendFunc(func(context.Context, string) (any, error) {
		return map[string]any{"outputText": "rest well"}, nil
	}), ratelimit.New())
	logger := zap.NewNop()
	origins := OriginAllowList{"http://localhost:5173"}
	router := NewRouter(NewHandler(svc, ratelimit.New(), logger), NewRealtime(svc, origins, logger), origins, logger)

	srv := httptest.NewServer(router)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "http://localhost:5173")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/socket", header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, EventBotReady, readFrame(t, conn).Event)
	send(t, conn, EventSendMessage, map[string]any{"message": "I have a headache"})
	assert.Equal(t, EventTypingStart, readFrame(t, conn).Event)
	assert.Equal(t, EventTypingEnd, readFrame(t, conn).Event)
	f := readFrame(t, conn)
	require.Equal(t, EventReceiveMessage, f.Event)
	assert.Contains(t, string(f.Data), "rest well")
}

func TestRealtimeRejectsForeignOrigin(t *testing.T) {
	rt := NewRealtime(stubGenerator{}, OriginAllowList{"http://localhost:5173"}, zap.NewNop())
	srv := httptest.NewServer(rt)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRealtimeOversizedFrameClosesConnection(t *testing.T) {
	called := false
	conn := dialRealtime(t, stubGenerator{gen: func(context.Context, models.GenerationRequest) (*models.Reply, error) {
		called = true
		return nil, errors.New("unreachable")
	}})

	// the server may hang up mid-write, so the write error is not interesting
	_ = conn.WriteJSON(outFrame{Event: EventSendMessage, Data: map[string]any{"message": strings.Repeat("a", maxBodyBytes)}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f Frame
	err := conn.ReadJSON(&f)
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "server should close instead of waiting: %v", err)
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		assert.Equal(t, websocket.CloseMessageTooBig, ce.Code)
	}
	assert.False(t, called)
}
