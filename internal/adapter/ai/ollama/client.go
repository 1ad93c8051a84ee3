// Package ollama implements a model client backed by a local Ollama runtime.
package ollama

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prepmind/feedback-engine/internal/adapter/observability"
	"github.com/prepmind/feedback-engine/internal/domain"
)

// Client calls the Ollama-compatible chat API of a local inference runtime.
// The runtime is single-threaded per process; callers serialize access
// through the invoker, not here.
type Client struct {
	host string
	hc   *http.Client
}

// New constructs a local model client for the given host, e.g.
// "http://127.0.0.1:11434".
func New(host string, timeout time.Duration) *Client {
	return &Client{
		host: strings.TrimRight(host, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Chat sends one chat completion request and returns the reply text.
// A single attempt only: local failures are the invoker's signal to try the
// hosted fallback.
func (c *Client) Chat(ctx domain.Context, model string, messages []domain.ChatMessage) (string, error) {
	b, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: false})
	if err != nil {
		return "", fmt.Errorf("op=ollama.chat: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("op=ollama.chat: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	observability.ModelInvocationDuration.WithLabelValues("local").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ModelInvocationsTotal.WithLabelValues("local", "error").Inc()
		slog.Warn("local model call failed", slog.String("host", c.host), slog.String("model", model), slog.Any("error", err))
		return "", fmt.Errorf("op=ollama.chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ModelInvocationsTotal.WithLabelValues("local", "error").Inc()
		return "", fmt.Errorf("op=ollama.chat: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ModelInvocationsTotal.WithLabelValues("local", "error").Inc()
		snippet := string(bodyBytes)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		slog.Warn("local model non-2xx", slog.String("host", c.host), slog.String("model", model), slog.Int("status", resp.StatusCode), slog.String("body", snippet))
		return "", fmt.Errorf("op=ollama.chat: status %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		observability.ModelInvocationsTotal.WithLabelValues("local", "error").Inc()
		return "", fmt.Errorf("op=ollama.chat: decode: %w", err)
	}
	observability.ModelInvocationsTotal.WithLabelValues("local", "ok").Inc()
	return out.Message.Content, nil
}
