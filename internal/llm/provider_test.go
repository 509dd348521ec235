package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var verdictSchema = &Schema{
	Name: "test-verdict",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct":   map[string]any{"type": "boolean"},
			"rationale": map[string]any{"type": "string"},
		},
		"required":             []string{"correct", "rationale"},
		"additionalProperties": false,
	},
}

func jsonHandler(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func newTestAnthropic(t *testing.T, h http.HandlerFunc) *anthropicProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := newAnthropic(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku"},
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return p
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 40, "output_tokens": 12},
	}
}

func TestAnthropicProvider(t *testing.T) {
	t.Run("structured output", func(t *testing.T) {
		p := newTestAnthropic(t, jsonHandler(http.StatusOK,
			anthropicMessage(`{"correct":true,"rationale":"matches key"}`, "end_turn")))
		assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())

		resp, err := p.Generate(context.Background(), UserPrompt("grade", "2+2=4", verdictSchema, 128))
		require.NoError(t, err)
		assert.JSONEq(t, `{"correct":true,"rationale":"matches key"}`, string(resp.Content))
		assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 12, TotalTokens: 52}, resp.Usage)
		assert.Equal(t, "end", resp.StopReason)
	})

	t.Run("schema violation", func(t *testing.T) {
		p := newTestAnthropic(t, jsonHandler(http.StatusOK, anthropicMessage(`{"correct":"yes"}`, "end_turn")))
		_, err := p.Generate(context.Background(), UserPrompt("grade", "x", verdictSchema, 128))
		var invalid *ErrInvalidResponse
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("truncated", func(t *testing.T) {
		p := newTestAnthropic(t, jsonHandler(http.StatusOK, anthropicMessage(`{"correct":tr`, "max_tokens")))
		_, err := p.Generate(context.Background(), UserPrompt("grade", "x", verdictSchema, 4))
		var truncated *ErrMaxTokensExceeded
		assert.ErrorAs(t, err, &truncated)
	})

	t.Run("rate limited", func(t *testing.T) {
		p := newTestAnthropic(t, jsonHandler(http.StatusTooManyRequests, map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		}))
		_, err := p.Generate(context.Background(), UserPrompt("", "x", nil, 16))
		var rl *ErrRateLimit
		assert.ErrorAs(t, err, &rl)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := newAnthropic(AnthropicConfig{})
		assert.Error(t, err)
	})
}

func TestOpenAIProvider(t *testing.T) {
	newProvider := func(t *testing.T, h http.HandlerFunc) *openaiProvider {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		p, err := newOpenAI(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL})
		require.NoError(t, err)
		return p
	}

	t.Run("structured output", func(t *testing.T) {
		var got map[string]any
		p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			jsonHandler(http.StatusOK, map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  "gpt-4o-mini",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": `{"correct":false,"rationale":"wrong sign"}`},
					"finish_reason": "stop",
				}},
				"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 9, "total_tokens": 39},
			})(w, r)
		})

		resp, err := p.Generate(context.Background(), UserPrompt("grade", "-3", verdictSchema, 64))
		require.NoError(t, err)
		assert.JSONEq(t, `{"correct":false,"rationale":"wrong sign"}`, string(resp.Content))
		assert.Equal(t, 39, resp.Usage.TotalTokens)

		msgs := got["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		format := got["response_format"].(map[string]any)
		assert.Equal(t, "json_schema", format["type"])
	})

	t.Run("server error", func(t *testing.T) {
		p := newProvider(t, jsonHandler(http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "boom", "type": "server_error"},
		}))
		_, err := p.Generate(context.Background(), UserPrompt("", "x", nil, 16))
		var unavailable *ErrProviderUnavailable
		assert.ErrorAs(t, err, &unavailable)
	})

	t.Run("no choices", func(t *testing.T) {
		p := newProvider(t, jsonHandler(http.StatusOK, map[string]any{"id": "x", "choices": []any{}}))
		_, err := p.Generate(context.Background(), UserPrompt("", "x", nil, 16))
		var invalid *ErrInvalidResponse
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(verdictSchema.Definition)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeBoolean, s.Properties["correct"].Type)
	assert.Equal(t, []string{"correct", "rationale"}, s.Required)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array","items":{"type":"string","enum":["a","b"]}}`), &decoded))
	s = toGeminiSchema(decoded)
	assert.Equal(t, genai.TypeArray, s.Type)
	assert.Equal(t, []string{"a", "b"}, s.Items.Enum)
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"correct":true,"rationale":"ok"}`, false},
		{"missing field", `{"correct":true}`, true},
		{"extra field", `{"correct":true,"rationale":"ok","score":1}`, true},
		{"not json", `correct`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(verdictSchema, json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var invalid *ErrInvalidResponse
			assert.ErrorAs(t, err, &invalid)
		})
	}

	assert.NoError(t, validateResponse(nil, json.RawMessage(`anything`)))
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 3, OutputTokens: 2}})
	m.Queue(MockResponse{Err: errors.New("boom")})

	resp, err := m.Generate(context.Background(), UserPrompt("s", "first", nil, 0))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(resp.Content))
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	_, err = m.Generate(context.Background(), UserPrompt("s", "second", nil, 0))
	assert.EqualError(t, err, "boom")

	_, err = m.Generate(context.Background(), Request{})
	var unavailable *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavailable)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "second", calls[1].Messages[0].Content)
}

func TestLookupPrice(t *testing.T) {
	p, ok := LookupPrice("claude-haiku")
	require.True(t, ok)
	assert.InDelta(t, 1.0+5.0, p.Cost(1_000_000, 1_000_000), 1e-9)

	_, ok = LookupPrice("unknown-model")
	assert.False(t, ok)
}
