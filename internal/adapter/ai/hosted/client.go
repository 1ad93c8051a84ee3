// Package hosted implements a model client backed by a hosted inference endpoint.
package hosted

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/prepmind/feedback-engine/internal/adapter/observability"
	"github.com/prepmind/feedback-engine/internal/config"
	"github.com/prepmind/feedback-engine/internal/domain"
)

// Client posts chat requests to a hosted inference endpoint with a bearer
// credential. Hosted calls are not subject to the local-inference mutex and
// may run concurrently.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a hosted model client with sensible timeouts.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.ModelTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Configured reports whether the endpoint and credential are set.
func (c *Client) Configured() bool { return c.cfg.HostedConfigured() }

// hostedReply tolerates the known response shapes of hosted providers: the
// output text arrives under "output", "message.content", or "content".
type hostedReply struct {
	Output  string `json:"output"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Content string `json:"content"`
}

func (r hostedReply) text() string {
	if r.Output != "" {
		return r.Output
	}
	if r.Message.Content != "" {
		return r.Message.Content
	}
	return r.Content
}

func (c *Client) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = c.cfg.HostedBackoffMaxElapsedTime
	expo.InitialInterval = c.cfg.HostedBackoffInitialInterval
	expo.MaxInterval = c.cfg.HostedBackoffMaxInterval
	expo.Multiplier = c.cfg.HostedBackoffMultiplier
	return expo
}

// Chat sends one chat completion request, retrying 429/5xx with backoff.
func (c *Client) Chat(ctx domain.Context, model string, messages []domain.ChatMessage) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: hosted model not configured", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(map[string]any{"model": model, "messages": messages})
	if err != nil {
		return "", fmt.Errorf("op=hosted.chat: %w", err)
	}

	var out hostedReply
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.HostedEndpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.HostedAPIKey)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(req)
		observability.ModelInvocationsTotal.WithLabelValues("hosted", "attempt").Inc()
		observability.ModelInvocationDuration.WithLabelValues("hosted").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("hosted model rate limited", slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			snippet := string(bodyBytes)
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			slog.Warn("hosted model 4xx", slog.Int("status", resp.StatusCode), slog.String("model", model), slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("hosted model status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet := string(bodyBytes)
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			slog.Error("hosted model non-2xx", slog.Int("status", resp.StatusCode), slog.String("model", model), slog.String("body", snippet))
			return fmt.Errorf("hosted model status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		return nil
	}

	bo := backoff.WithContext(c.backoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		observability.ModelInvocationsTotal.WithLabelValues("hosted", "error").Inc()
		return "", fmt.Errorf("op=hosted.chat: %w", err)
	}
	observability.ModelInvocationsTotal.WithLabelValues("hosted", "ok").Inc()
	return out.text(), nil
}
