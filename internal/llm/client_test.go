package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/llm"
	"github.com/presentos/presentos/pkg/models"
)

func newChatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
			"usage": map[string]int64{"total_tokens": 42},
		})
	}))
}

func TestChatReturnsCompletion(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "hello from the model")
	defer srv.Close()

	c := llm.NewClient(config.ModelConfig{
		APIKey:   "test-key",
		Endpoint: srv.URL,
		Model:    "llama-3.3-70b-versatile",
	})
	require.True(t, c.Configured())

	resp, err := c.Chat(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello from the model", resp.Content)
	assert.Equal(t, "groq", resp.Provider)
	assert.EqualValues(t, 42, resp.Tokens)
}

func TestCompleteSatisfiesTextCompleter(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "ok")
	defer srv.Close()

	c := llm.NewClient(config.ModelConfig{APIKey: "k", Endpoint: srv.URL, Model: "m"})

	out, err := c.Complete(context.Background(), "say ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestChatFailsOverToSecondProvider(t *testing.T) {
	bad := newChatServer(t, http.StatusInternalServerError, "")
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "local answer"}},
			},
		})
	}))
	defer good.Close()

	c := llm.NewClient(config.ModelConfig{
		APIKey:         "k",
		Endpoint:       bad.URL,
		Model:          "m",
		OllamaEndpoint: good.URL,
		OllamaModel:    "llama3.2",
	})

	resp, err := c.Chat(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "local answer", resp.Content)
}

func TestChatUnconfigured(t *testing.T) {
	c := llm.NewClient(config.ModelConfig{})
	require.False(t, c.Configured())

	_, err := c.Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestLatencyTracked(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "x")
	defer srv.Close()

	c := llm.NewClient(config.ModelConfig{APIKey: "k", Endpoint: srv.URL, Model: "m"})

	_, err := c.Chat(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.Latency("groq"), int64(0))
}
