package llm

import (
	"encoding/json"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestExtractKnownShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want string
	}{
		{
			name: "candidates under response",
			raw: map[string]any{"response": map[string]any{"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "from candidates"}}}},
			}}},
			want: "from candidates",
		},
		{
			name: "bare candidates",
			raw: map[string]any{"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": "rest body"}}}},
			}},
			want: "rest body",
		},
		{
			name: "output content",
			raw: map[string]any{"output": []any{
				map[string]any{"content": []any{map[string]any{"text": "from output"}}},
			}},
			want: "from output",
		},
		{name: "outputText", raw: map[string]any{"outputText": "plain output"}, want: "plain output"},
		{name: "text", raw: map[string]any{"text": "just text"}, want: "just text"},
		{name: "string", raw: "raw string", want: "raw string"},
		{
			name: "openai chat completion",
			raw: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "chat reply"}},
			}},
			want: "chat reply",
		},
		{
			name: "langchaingo content response",
			raw:  &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "lc reply"}}},
			want: "lc reply",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractPriorityOrder(t *testing.T) {
	raw := map[string]any{
		"text":       "lower",
		"outputText": "higher",
	}
	got, ok := Extract(raw)
	require.True(t, ok)
	assert.Equal(t, "higher", got)
}

func TestExtractFallsThroughEmptyValues(t *testing.T) {
	raw := map[string]any{"outputText": "", "text": "used"}
	got, ok := Extract(raw)
	require.True(t, ok)
	assert.Equal(t, "used", got)
}

const generateContentBody = `{
  "candidates": [{
    "content": {"parts": [{"text": "  Rest and stay hydrated.\n"}], "role": "model"},
    "finishReason": "STOP",
    "safetyRatings": [{"category": "HARM_CATEGORY_MEDICAL", "probability": "NEGLIGIBLE"}]
  }],
  "usageMetadata": {"promptTokenCount": 412, "candidatesTokenCount": 9}
}`

func TestExtractGenerateContentBody(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(generateContentBody), &raw))

	got, ok := Extract(raw)
	require.True(t, ok)
	assert.Equal(t, "  Rest and stay hydrated.\n", got)

	got, ok = Extract(map[string]any{"response": raw})
	require.True(t, ok)
	assert.Equal(t, "  Rest and stay hydrated.\n", got)
}

func TestExtractUnrecognized(t *testing.T) {
	for _, raw := range []any{
		nil,
		"",
		map[string]any{"foo": "bar"},
		map[string]any{"text": 42},
		[]any{"a", "b"},
		map[string]any{"candidates": []any{}},
	} {
		got, ok := Extract(raw)
		assert.False(t, ok, "%#v", raw)
		assert.Empty(t, got)
	}
}

func TestNewExtractorRejectsBadPath(t *testing.T) {
	_, err := NewExtractor(".foo[")
	require.Error(t, err)
}

func TestCustomExtractor(t *testing.T) {
	e, err := NewExtractor(".data.reply")
	require.NoError(t, err)

	got, ok := e.Extract(map[string]any{"data": map[string]any{"reply": "custom"}})
	require.True(t, ok)
	assert.Equal(t, "custom", got)

	_, ok = e.Extract("strings are not accepted without the . path")
	assert.False(t, ok)
}
