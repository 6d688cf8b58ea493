// Package llm is the chat-completion client used by the intent classifier and
// the chat agent.
//
// The client talks to an OpenAI-compatible endpoint (Groq by default) and can
// fail over to a local Ollama instance. Provider latency is tracked with a
// rolling average so callers can inspect which path requests are taking.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/pkg/models"
)

// Response is one completion with provider metadata.
type Response struct {
	Provider  string
	Model     string
	Content   string
	Tokens    int64
	LatencyMs int64
}

type provider struct {
	name     string
	endpoint string
	apiKey   string
	model    string
}

// Client routes chat requests to the configured providers in order.
type Client struct {
	httpClient *http.Client
	providers  []provider

	latencyMu sync.RWMutex
	latencies map[string]int64
}

// NewClient builds the provider chain from config. The primary provider needs
// an API key; Ollama is appended when an endpoint is set. With no providers
// configured, Configured reports false and every call errors.
func NewClient(cfg config.ModelConfig) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		latencies:  make(map[string]int64),
	}

	if cfg.APIKey != "" {
		c.providers = append(c.providers, provider{
			name:     "groq",
			endpoint: cfg.Endpoint,
			apiKey:   cfg.APIKey,
			model:    cfg.Model,
		})
	}
	if cfg.OllamaEndpoint != "" {
		c.providers = append(c.providers, provider{
			name:     "ollama",
			endpoint: cfg.OllamaEndpoint + "/v1",
			model:    cfg.OllamaModel,
		})
	}

	return c
}

// Configured reports whether at least one provider is usable.
func (c *Client) Configured() bool { return len(c.providers) > 0 }

// Complete sends a single-turn prompt and returns the raw completion text.
// Satisfies intent.TextCompleter.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Chat(ctx, []models.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Chat sends a conversation through the provider chain. Each provider gets a
// short retry on transient failures before the next one is tried.
func (c *Client) Chat(ctx context.Context, messages []models.ChatMessage) (*Response, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no chat model configured")
	}

	var lastErr error
	for _, p := range c.providers {
		resp, err := c.callWithRetry(ctx, p, messages)
		if err != nil {
			log.Warn().
				Str("provider", p.name).
				Str("model", p.model).
				Err(err).
				Msg("Provider call failed, trying next")
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("all providers failed, last error: %w", lastErr)
}

// Latency returns the rolling average latency in ms for a provider, 0 when
// the provider has not been called yet.
func (c *Client) Latency(name string) int64 {
	c.latencyMu.RLock()
	defer c.latencyMu.RUnlock()
	return c.latencies[name]
}

func (c *Client) callWithRetry(ctx context.Context, p provider, messages []models.ChatMessage) (*Response, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	var resp *Response
	op := func() error {
		var err error
		resp, err = c.call(ctx, p, messages)
		return err
	}
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return resp, nil
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) call(ctx context.Context, p provider, messages []models.ChatMessage) (*Response, error) {
	start := time.Now()

	body, _ := json.Marshal(chatRequest{Model: p.model, Messages: messages})

	url := p.endpoint + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("%s: status %d: %s", p.name, httpResp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}

	content := ""
	if len(cr.Choices) > 0 {
		content = cr.Choices[0].Message.Content
	}

	latencyMs := time.Since(start).Milliseconds()
	c.latencyMu.Lock()
	prev := c.latencies[p.name]
	if prev == 0 {
		c.latencies[p.name] = latencyMs
	} else {
		// Exponential moving average
		c.latencies[p.name] = (prev*7 + latencyMs*3) / 10
	}
	c.latencyMu.Unlock()

	return &Response{
		Provider:  p.name,
		Model:     p.model,
		Content:   content,
		Tokens:    cr.Usage.TotalTokens,
		LatencyMs: latencyMs,
	}, nil
}
