// Package tokencount provides token counting for model invocations.
//
// It uses tiktoken-go to approximate prompt and reply token counts so
// invocation size can be logged and bounded. Local runtime models (phi3,
// llama and friends) do not ship tiktoken vocabularies, so counts fall back
// to the cl100k_base encoding, which is close enough for budgeting.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// The offline BPE loader embeds the vocabularies, so counting never reaches
// out to the network.
var loaderOnce sync.Once

// Usage represents token counts for one model invocation.
type Usage struct {
	PromptTokens int    `json:"prompt_tokens"`
	ReplyTokens  int    `json:"reply_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	Model        string `json:"model"`
}

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	loaderOnce.Do(func() { tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader()) })
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	normalized := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalized]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[normalized]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(normalized)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[normalized] = enc
	return enc, nil
}

// normalizeModelName maps runtime model tags to a tiktoken-known model.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	// Tags like "phi3:mini" or "llama3:8b-instruct" carry a size suffix.
	if i := strings.Index(model, ":"); i >= 0 {
		model = model[:i]
	}
	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// phi, llama, mistral, gemma, qwen all tokenize close enough to GPT-4.
		return "gpt-4"
	}
}

// CountTokens counts the tokens in text for the given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Estimate returns a Usage for one prompt/reply pair, falling back to a
// rough 4-chars-per-token estimate when counting fails.
func (c *Counter) Estimate(prompt, reply, model string) Usage {
	promptTokens, err := c.CountTokens(prompt, model)
	if err != nil {
		slog.Warn("failed to count prompt tokens, using estimate",
			slog.String("model", model),
			slog.Any("error", err))
		promptTokens = len(prompt) / 4
	}
	replyTokens, err := c.CountTokens(reply, model)
	if err != nil {
		slog.Warn("failed to count reply tokens, using estimate",
			slog.String("model", model),
			slog.Any("error", err))
		replyTokens = len(reply) / 4
	}
	return Usage{
		PromptTokens: promptTokens,
		ReplyTokens:  replyTokens,
		TotalTokens:  promptTokens + replyTokens,
		Model:        model,
	}
}
