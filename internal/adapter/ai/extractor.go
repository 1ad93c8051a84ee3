package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/prepmind/feedback-engine/internal/adapter/observability"
	"github.com/prepmind/feedback-engine/internal/config"
	"github.com/prepmind/feedback-engine/internal/domain"
)

// Extractor turns raw model replies into structured feedback records. It
// never fails: when direct parsing, textual repair, and the bounded repair
// re-prompts all come up empty it returns a zero record so the pipeline can
// fall back to heuristic-only scoring.
type Extractor struct {
	model     domain.ModelClient
	cleaner   *Cleaner
	prompts   config.Prompts
	modelName string
	maxRounds int
}

// NewExtractor constructs an Extractor. maxRounds bounds the repair
// re-prompts per extraction (2 in production).
func NewExtractor(model domain.ModelClient, prompts config.Prompts, modelName string, maxRounds int) *Extractor {
	if maxRounds < 0 {
		maxRounds = 0
	}
	return &Extractor{
		model:     model,
		cleaner:   NewCleaner(),
		prompts:   prompts,
		modelName: modelName,
		maxRounds: maxRounds,
	}
}

// Extract parses rawReply into a ModelFeedback, escalating through textual
// repair and at most maxRounds model re-prompts.
func (e *Extractor) Extract(ctx domain.Context, rawReply string) domain.ModelFeedback {
	if fb, ok := e.parseWithRepair(rawReply); ok {
		return fb
	}

	prev := rawReply
	for round := 1; round <= e.maxRounds; round++ {
		observability.RepairRoundsTotal.Inc()
		slog.Info("issuing model repair re-prompt", slog.Int("round", round), slog.Int("max_rounds", e.maxRounds))
		reply, err := e.model.Chat(ctx, e.modelName, []domain.ChatMessage{
			{Role: "user", Content: e.prompts.RenderRepair(prev)},
		})
		if err != nil {
			slog.Warn("repair re-prompt failed", slog.Int("round", round), slog.Any("error", err))
			if errors.Is(err, domain.ErrModelUnavailable) {
				break
			}
			continue
		}
		if fb, ok := e.parseWithRepair(reply); ok {
			observability.ExtractionOutcomesTotal.WithLabelValues("reprompted").Inc()
			return fb
		}
		// Next round repairs the newest output, which is usually closer to
		// valid JSON than the original reply.
		prev = reply
	}

	observability.ExtractionOutcomesTotal.WithLabelValues("empty").Inc()
	slog.Warn("model output unparsable after all repair rounds; degrading to heuristic-only scoring")
	return domain.ModelFeedback{}
}

// parseWithRepair tries the raw text directly and then the repaired candidate.
func (e *Extractor) parseWithRepair(raw string) (domain.ModelFeedback, bool) {
	if strings.TrimSpace(raw) == "" {
		return domain.ModelFeedback{}, false
	}
	if fb, ok := decodeFeedback(raw); ok {
		observability.ExtractionOutcomesTotal.WithLabelValues("direct").Inc()
		return fb, true
	}
	if fb, ok := decodeFeedback(e.cleaner.Clean(raw)); ok {
		observability.ExtractionOutcomesTotal.WithLabelValues("repaired").Inc()
		return fb, true
	}
	return domain.ModelFeedback{}, false
}

// decodeFeedback decodes s into the feedback schema. It accepts only a JSON
// object; a record missing numeric keys is accepted as partial and the
// normalizer backfills the gaps from heuristics.
func decodeFeedback(s string) (domain.ModelFeedback, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return domain.ModelFeedback{}, false
	}
	fb := domain.ModelFeedback{
		Strengths:          toStringList(obj["strengths"]),
		Improvements:       toStringList(obj["improvements"]),
		Recommendations:    toStringList(obj["recommendations"]),
		TechnicalKnowledge: toNumber(obj["technicalKnowledge"]),
		ProblemSolving:     toNumber(obj["problemSolving"]),
		Communication:      toNumber(obj["communication"]),
		TotalScore:         toNumber(obj["totalScore"]),
		DetailedAnalysis:   toText(obj["detailedAnalysis"]),
	}
	if fb.DetailedAnalysis == "" {
		fb.DetailedAnalysis = toText(obj["feedback"])
	}
	return fb, true
}

// toNumber accepts JSON numbers and numeric strings; anything else is absent.
func toNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func toText(v any) string {
	s, _ := v.(string)
	return s
}

func toStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch s := it.(type) {
		case string:
			out = append(out, s)
		default:
			out = append(out, fmt.Sprint(it))
		}
	}
	return out
}
