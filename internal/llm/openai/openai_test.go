package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-team-trader/internal/llm"
)

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func TestCompleteSendsPromptsAndKeepsHistory(t *testing.T) {
	var lastBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
		reply(w, ` {"signal":"BUY","confidence":0.8} `)
	}))
	defer srv.Close()

	a := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-test", HistorySize: 2})

	out, err := a.Complete(context.Background(), "be terse", "first")
	require.NoError(t, err)
	assert.Equal(t, `{"signal":"BUY","confidence":0.8}`, out)
	require.Len(t, lastBody.Messages, 2)
	assert.Equal(t, "system", lastBody.Messages[0].Role)
	assert.Equal(t, "gpt-test", lastBody.Model)

	_, err = a.Complete(context.Background(), "be terse", "second")
	require.NoError(t, err)
	require.Len(t, lastBody.Messages, 4)
	assert.Equal(t, "first", lastBody.Messages[1].Content)
	assert.Equal(t, "second", lastBody.Messages[3].Content)

	hist := a.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "second", hist[0].Content)
}

func TestCompleteRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		reply(w, "ok")
	}))
	defer srv.Close()

	a := New(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2})
	out, err := a.Complete(context.Background(), "", "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteErrors(t *testing.T) {
	_, err := New(Config{}).Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, llm.ErrMissingCredentials)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			http.Error(w, "invalid key", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err = New(Config{APIKey: "bad", BaseURL: srv.URL}).Complete(context.Background(), "s", "p")
	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	a := New(Config{APIKey: "good", BaseURL: srv.URL})
	_, err = a.Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
	assert.Empty(t, a.History())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.local/v1")
	cfg := ConfigFromEnv(Config{Model: "m"})
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "https://proxy.local/v1", cfg.BaseURL)

	kept := ConfigFromEnv(Config{APIKey: "explicit"})
	assert.Equal(t, "explicit", kept.APIKey)
}

func TestCompleteWithoutHistorySendsSameMessageCount(t *testing.T) {
	var counts []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		counts = append(counts, len(body.Messages))
		reply(w, `{"signal":"HOLD"}`)
	}))
	defer srv.Close()

	a := New(Config{APIKey: "k", BaseURL: srv.URL, HistorySize: -1})
	for _, p := range []string{"cycle 1", "cycle 2", "cycle 3"} {
		_, err := a.Complete(context.Background(), "system", p)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{2, 2, 2}, counts)
	assert.Empty(t, a.History())
}

func TestChatOffersToolsAndReturnsCalls(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"get_market_data","arguments":"{\"symbol\":\"cmt_btcusdt\"}"}}]}}]}`))
	}))
	defer srv.Close()

	a := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-test"})
	tools := []llm.Tool{llm.FunctionTool("get_market_data", "quote", map[string]any{"type": "object"})}
	msg, err := a.Chat(context.Background(), []llm.Message{{Role: "user", Content: "analyze"}}, tools)
	require.NoError(t, err)

	assert.Equal(t, "auto", got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "get_market_data", got.Tools[0].Function.Name)

	assert.Equal(t, "assistant", msg.Role)
	assert.Empty(t, msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.JSONEq(t, `{"symbol":"cmt_btcusdt"}`, msg.ToolCalls[0].Function.Arguments)
	assert.Empty(t, a.History())
}
