package usecase

import (
	"math"
	"strings"

	"github.com/prepmind/feedback-engine/internal/domain"
)

// maxListItems caps each feedback list after deduplication.
const maxListItems = 10

// Normalize merges the model-declared record with heuristic category scores
// into the final feedback record. Model numerics are used only when present
// and non-negative; everything else is backfilled from the heuristics. The
// total is always recomputed as the category sum, never trusted from the
// model.
func Normalize(fb domain.ModelFeedback, heur domain.CategoryScores) domain.FeedbackRecord {
	rec := domain.FeedbackRecord{
		Strengths:          dedupe(fb.Strengths),
		Improvements:       dedupe(fb.Improvements),
		Recommendations:    dedupe(fb.Recommendations),
		TechnicalKnowledge: pickScore(fb.TechnicalKnowledge, heur.TechnicalKnowledge),
		ProblemSolving:     pickScore(fb.ProblemSolving, heur.ProblemSolving),
		Communication:      pickScore(fb.Communication, heur.Communication),
		DetailedAnalysis:   fb.DetailedAnalysis,
	}
	rec.TotalScore = rec.TechnicalKnowledge + rec.ProblemSolving + rec.Communication
	return rec
}

// pickScore chooses the model value when present and >= 0, else the
// heuristic, then rounds and clamps to [0,10].
func pickScore(model *float64, heuristic float64) int {
	v := heuristic
	if model != nil && *model >= 0 {
		v = *model
	}
	n := int(math.Round(v))
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return n
}

// dedupe trims entries, drops empties, removes duplicates preserving first
// occurrence, and caps the list. Running it twice is a no-op.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		s := strings.TrimSpace(it)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}
