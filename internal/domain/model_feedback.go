package domain

// ModelFeedback is the schema-shaped record the model is asked to emit.
// Numeric fields are pointers: nil means the model did not supply a usable
// value and the normalizer must backfill it from heuristics. TotalScore is
// carried for completeness but never trusted; the normalizer recomputes it.
type ModelFeedback struct {
	Strengths          []string
	Improvements       []string
	Recommendations    []string
	TechnicalKnowledge *float64
	ProblemSolving     *float64
	Communication      *float64
	TotalScore         *float64
	DetailedAnalysis   string
}

// IsEmpty reports whether nothing usable was extracted from the model.
func (m ModelFeedback) IsEmpty() bool {
	return len(m.Strengths) == 0 && len(m.Improvements) == 0 && len(m.Recommendations) == 0 &&
		m.TechnicalKnowledge == nil && m.ProblemSolving == nil && m.Communication == nil &&
		m.DetailedAnalysis == ""
}

// CategoryScores groups the three heuristic category values before rounding.
type CategoryScores struct {
	TechnicalKnowledge float64
	ProblemSolving     float64
	Communication      float64
}
