// Package scoring computes category scores directly from interview answer
// text, independent of anything the model says. The scorer is pure and
// deterministic: identical transcripts always produce identical values.
package scoring

import (
	"regexp"
	"strings"

	"github.com/prepmind/feedback-engine/internal/domain"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "if": {}, "in": {},
	"on": {}, "at": {}, "for": {}, "of": {}, "to": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "as": {},
	"that": {}, "this": {}, "it": {}, "from": {},
}

var (
	skippedRe    = regexp.MustCompile(`(?i)^(skipped|no answer)`)
	techVocabRe  = regexp.MustCompile(`(?i)(react|node|java|spring|python|sql|api|system|architecture|algorithm|data|docker|kubernetes)`)
	behaviorRe   = regexp.MustCompile(`(?i)(team|collaborat|lead|communicat|resolve|conflict|adapt|learn|improv|feedback)`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// Features are the aggregate signals derived from one transcript.
type Features struct {
	RelevanceAvg       float64
	AnsweredRatio      float64
	AvgAnswerLen       float64
	AnsweredCount      int
	HasTechnicalVocab  bool
	HasBehavioralVocab bool
}

// Scorer computes heuristic category scores from a transcript.
type Scorer struct{}

// NewScorer returns a stateless heuristic scorer.
func NewScorer() *Scorer { return &Scorer{} }

// Score returns the three category values as floats in [0,10]. A transcript
// with no answered questions scores 0 on every axis.
func (s *Scorer) Score(t domain.Transcript) domain.CategoryScores {
	f := s.Extract(t)
	if f.AnsweredCount == 0 {
		return domain.CategoryScores{}
	}

	// Base scores on the 0..1 scale before blending.
	techLexical := 0.4
	if f.HasTechnicalVocab {
		techLexical = 0.8
	}
	techLexical += clamp01(f.AvgAnswerLen/300) * 0.2

	lengthScore := clamp01(f.AvgAnswerLen / 180)
	commLength := clamp01(f.AvgAnswerLen/160)*0.8 + 0.2

	return domain.CategoryScores{
		TechnicalKnowledge: 10 * clamp01(0.5*techLexical+0.5*f.RelevanceAvg),
		ProblemSolving:     10 * clamp01(0.4*lengthScore+0.6*f.RelevanceAvg),
		Communication:      10 * clamp01(0.6*commLength+0.4*f.AnsweredRatio),
	}
}

// Extract computes the aggregate features for a transcript.
func (s *Scorer) Extract(t domain.Transcript) Features {
	var f Features
	if len(t) == 0 {
		return f
	}

	var relSum float64
	var lenSum int
	for _, qa := range t {
		relSum += Relevance(qa.Question, qa.Answer)
		lenSum += len(qa.Answer)
		if strings.TrimSpace(qa.Answer) != "" {
			f.AnsweredCount++
		}
	}
	f.RelevanceAvg = relSum / float64(len(t))
	f.AnsweredRatio = float64(f.AnsweredCount) / float64(len(t))
	if f.AnsweredCount > 0 {
		f.AvgAnswerLen = float64(lenSum) / float64(f.AnsweredCount)
	}

	joined := strings.ToLower(strings.Join(t.Answers(), " "))
	f.HasTechnicalVocab = techVocabRe.MatchString(joined)
	f.HasBehavioralVocab = behaviorRe.MatchString(joined)
	return f
}

// Relevance is the token-overlap ratio between an answer and its question,
// normalized by max(3, question token count), scaled by 2, clamped to [0,1].
// Absent answers and "skipped"/"no answer" placeholders score 0.
func Relevance(question, answer string) float64 {
	if strings.TrimSpace(answer) == "" || skippedRe.MatchString(strings.TrimSpace(answer)) {
		return 0
	}
	qTok := Tokenize(question)
	aTok := Tokenize(answer)
	if len(qTok) == 0 || len(aTok) == 0 {
		return 0
	}
	qSet := make(map[string]struct{}, len(qTok))
	for _, w := range qTok {
		qSet[w] = struct{}{}
	}
	overlap := 0
	for _, w := range aTok {
		if _, ok := qSet[w]; ok {
			overlap++
		}
	}
	norm := len(qSet)
	if norm < 3 {
		norm = 3
	}
	return clamp01(float64(overlap) / float64(norm) * 2)
}

// Tokenize lower-cases, splits on non-alphanumeric runs, and drops stop words.
func Tokenize(s string) []string {
	parts := nonAlnumRe.Split(strings.ToLower(s), -1)
	out := make([]string, 0, len(parts))
	for _, w := range parts {
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
