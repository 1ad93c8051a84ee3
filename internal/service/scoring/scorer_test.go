package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepmind/feedback-engine/internal/domain"
	"github.com/prepmind/feedback-engine/internal/service/scoring"
)

func substantiveTranscript() domain.Transcript {
	return domain.Transcript{
		{
			Question: "Tell me about your experience with React and state management",
			Answer:   "I have used React for three years, building dashboards with complex state management. I introduced a normalized store, memoized selectors, and measured render performance before and after each refactor to keep the app responsive under load.",
		},
		{
			Question: "How do you approach debugging a production incident",
			Answer:   "I start from the symptoms in production, reproduce the incident locally when possible, and use logs plus metrics to narrow down the failing component. Once the root cause is confirmed I write a regression test before shipping the fix.",
		},
		{
			Question: "Describe a time you disagreed with a teammate",
			Answer:   "A teammate and I disagreed about an API design. I asked them to walk me through their reasoning, we prototyped both options, and we let the benchmark and the team decide. We ended up combining the two approaches.",
		},
	}
}

func TestScorer_Score_SubstantiveAnswers(t *testing.T) {
	t.Parallel()

	s := scoring.NewScorer()
	got := s.Score(substantiveTranscript())

	// Every question answered at meaningful length should clear the midpoint
	// on communication and produce nonzero values on the other axes.
	assert.Greater(t, got.Communication, 5.0)
	assert.Greater(t, got.TechnicalKnowledge, 0.0)
	assert.Greater(t, got.ProblemSolving, 0.0)
	for _, v := range []float64{got.TechnicalKnowledge, got.ProblemSolving, got.Communication} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestScorer_Score_NoAnsweredQuestions(t *testing.T) {
	t.Parallel()

	s := scoring.NewScorer()
	transcript := domain.Transcript{
		{Question: "What is a goroutine?", Answer: ""},
		{Question: "Explain database indexing", Answer: "   "},
	}

	got := s.Score(transcript)
	assert.Equal(t, domain.CategoryScores{}, got)
}

func TestScorer_Score_EmptyTranscript(t *testing.T) {
	t.Parallel()

	s := scoring.NewScorer()
	assert.Equal(t, domain.CategoryScores{}, s.Score(nil))
	assert.Equal(t, domain.CategoryScores{}, s.Score(domain.Transcript{}))
}

func TestScorer_Score_Deterministic(t *testing.T) {
	t.Parallel()

	s := scoring.NewScorer()
	tr := substantiveTranscript()

	first := s.Score(tr)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(tr))
	}
}

func TestScorer_Extract(t *testing.T) {
	t.Parallel()

	s := scoring.NewScorer()
	transcript := domain.Transcript{
		{Question: "Explain Docker networking", Answer: "Docker uses bridge networks by default"},
		{Question: "How do you handle team conflict", Answer: ""},
	}

	f := s.Extract(transcript)
	assert.Equal(t, 1, f.AnsweredCount)
	assert.InDelta(t, 0.5, f.AnsweredRatio, 1e-9)
	assert.InDelta(t, 38, f.AvgAnswerLen, 1e-9)
	assert.True(t, f.HasTechnicalVocab)
	assert.False(t, f.HasBehavioralVocab)
	assert.Greater(t, f.RelevanceAvg, 0.0)
}

func TestRelevance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		answer   string
		want     float64
		exact    bool
	}{
		{
			name:     "empty_answer",
			question: "What is Go?",
			answer:   "",
			want:     0,
			exact:    true,
		},
		{
			name:     "whitespace_answer",
			question: "What is Go?",
			answer:   "  \t ",
			want:     0,
			exact:    true,
		},
		{
			name:     "skipped_placeholder",
			question: "What is Go?",
			answer:   "Skipped",
			want:     0,
			exact:    true,
		},
		{
			name:     "no_answer_placeholder",
			question: "What is Go?",
			answer:   "no answer given",
			want:     0,
			exact:    true,
		},
		{
			name:     "unrelated_answer",
			question: "Explain goroutine scheduling",
			answer:   "Bananas ripen faster near apples",
			want:     0,
			exact:    true,
		},
		{
			// qSet = {explain, goroutines, go, scheduling} (norm 4);
			// answer overlaps on goroutines and go: 2/4*2 = 1.0.
			name:     "full_overlap_clamped",
			question: "Explain goroutines in Go scheduling",
			answer:   "Goroutines are multiplexed by the Go runtime",
			want:     1.0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scoring.Relevance(tt.question, tt.answer)
			if tt.exact {
				assert.Equal(t, tt.want, got)
			} else {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestRelevance_ShortQuestionFloor(t *testing.T) {
	t.Parallel()

	// A one-token question still normalizes by 3, so a single-token overlap
	// cannot saturate the score.
	got := scoring.Relevance("Kubernetes?", "Kubernetes")
	assert.InDelta(t, 2.0/3.0, got, 1e-9)
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases_and_splits",
			input: "Explain REST APIs!",
			want:  []string{"explain", "rest", "apis"},
		},
		{
			name:  "drops_stop_words",
			input: "the cat is on a mat",
			want:  []string{"cat", "mat"},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{},
		},
		{
			name:  "punctuation_only",
			input: "?!,.",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scoring.Tokenize(tt.input)
			require.Equal(t, tt.want, got)
		})
	}
}
