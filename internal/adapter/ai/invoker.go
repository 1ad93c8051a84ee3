// Package ai provides model invocation, response cleaning, and structured
// record extraction for the feedback pipeline.
package ai

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prepmind/feedback-engine/internal/adapter/ai/tokencount"
	"github.com/prepmind/feedback-engine/internal/domain"
)

// InvocationPolicy decides per call whether the hosted endpoint is used
// unconditionally. It is fixed at construction: the startup capability probe
// for local acceleration hardware decides ForceHosted once, and the decision
// is injected here instead of being read from process-global state.
type InvocationPolicy struct {
	// ForceHosted routes every call to the hosted endpoint.
	ForceHosted bool
}

// Invoker implements domain.ModelClient over a local inference runtime with
// a hosted fallback. At most one local inference call is in flight per
// Invoker; competing calls block on the mutex. Hosted calls are not subject
// to the exclusion and may run concurrently.
type Invoker struct {
	policy  InvocationPolicy
	local   domain.ModelClient
	hosted  domain.ModelClient // nil when no hosted endpoint is configured
	counter *tokencount.Counter

	localMu sync.Mutex
}

// NewInvoker constructs an Invoker. hosted may be nil.
func NewInvoker(policy InvocationPolicy, local, hosted domain.ModelClient) *Invoker {
	return &Invoker{
		policy:  policy,
		local:   local,
		hosted:  hosted,
		counter: tokencount.NewCounter(),
	}
}

// Chat routes one chat completion request per the invocation policy:
// hosted-only when forced, otherwise local first with a single transparent
// hosted retry on local failure. It fails with ErrModelUnavailable only when
// every available path has failed.
func (iv *Invoker) Chat(ctx domain.Context, model string, messages []domain.ChatMessage) (string, error) {
	if iv.policy.ForceHosted {
		if iv.hosted == nil {
			return "", fmt.Errorf("%w: hosted path forced but not configured", domain.ErrModelUnavailable)
		}
		reply, err := iv.hosted.Chat(ctx, model, messages)
		if err != nil {
			return "", fmt.Errorf("%w: hosted: %v", domain.ErrModelUnavailable, err)
		}
		iv.logUsage(model, messages, reply, "hosted")
		return reply, nil
	}

	reply, localErr := iv.chatLocal(ctx, model, messages)
	if localErr == nil {
		iv.logUsage(model, messages, reply, "local")
		return reply, nil
	}
	slog.Warn("local model call failed", slog.Any("error", localErr))

	if iv.hosted == nil {
		return "", fmt.Errorf("%w: local: %v", domain.ErrModelUnavailable, localErr)
	}
	slog.Info("falling back to hosted model after local failure")
	reply, hostedErr := iv.hosted.Chat(ctx, model, messages)
	if hostedErr != nil {
		return "", fmt.Errorf("%w: local: %v; hosted: %v", domain.ErrModelUnavailable, localErr, hostedErr)
	}
	iv.logUsage(model, messages, reply, "hosted")
	return reply, nil
}

// chatLocal serializes access to the local runtime, which is single-threaded
// per process.
func (iv *Invoker) chatLocal(ctx domain.Context, model string, messages []domain.ChatMessage) (string, error) {
	iv.localMu.Lock()
	defer iv.localMu.Unlock()
	return iv.local.Chat(ctx, model, messages)
}

func (iv *Invoker) logUsage(model string, messages []domain.ChatMessage, reply, path string) {
	prompt := ""
	for _, m := range messages {
		prompt += m.Content
	}
	usage := iv.counter.Estimate(prompt, reply, model)
	slog.Debug("model invocation tokens",
		slog.String("path", path),
		slog.String("model", model),
		slog.Int("prompt_tokens", usage.PromptTokens),
		slog.Int("reply_tokens", usage.ReplyTokens),
		slog.Int("total_tokens", usage.TotalTokens))
}
