// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/prepmind/feedback-engine/internal/adapter/observability"
	"github.com/prepmind/feedback-engine/internal/config"
	"github.com/prepmind/feedback-engine/internal/domain"
	"github.com/prepmind/feedback-engine/internal/service/scoring"
	"github.com/prepmind/feedback-engine/pkg/textx"
)

// FallbackMessage is the caller-visible text when the model is entirely
// unreachable. Raw error detail never reaches the caller.
const FallbackMessage = "Thank you for your interview. We're experiencing technical difficulties generating detailed feedback. Please try again later."

// Extractor (port) turns a raw model reply into a structured record. It
// never fails; worst case is a zero record.
type Extractor interface {
	Extract(ctx domain.Context, rawReply string) domain.ModelFeedback
}

// FeedbackService orchestrates one feedback generation: model invocation,
// extraction, heuristic scoring, normalization, and best-effort persistence.
type FeedbackService struct {
	Model      domain.ModelClient
	Extract    Extractor
	Scorer     *scoring.Scorer
	Interviews domain.InterviewRepository // nil disables the primary store
	Archive    domain.Archiver

	Prompts   config.Prompts
	ModelName string
	MaxChars  int
}

// NewFeedbackService constructs a FeedbackService with its dependencies.
func NewFeedbackService(model domain.ModelClient, ex Extractor, interviews domain.InterviewRepository, archive domain.Archiver, prompts config.Prompts, modelName string, maxChars int) *FeedbackService {
	return &FeedbackService{
		Model:      model,
		Extract:    ex,
		Scorer:     scoring.NewScorer(),
		Interviews: interviews,
		Archive:    archive,
		Prompts:    prompts,
		ModelName:  modelName,
		MaxChars:   maxChars,
	}
}

// Generate produces the normalized feedback record and conversation view for
// one completed interview transcript. It fails only when the model is
// entirely unreachable; unparsable output and persistence failures degrade
// without surfacing to the caller.
func (s *FeedbackService) Generate(ctx domain.Context, ic domain.InterviewContext, transcript domain.Transcript, callerID string) (domain.FeedbackRecord, domain.Conversation, error) {
	tracer := otel.Tracer("usecase.feedback")
	ctx, span := tracer.Start(ctx, "feedback.Generate")
	defer span.End()

	prompt := s.Prompts.RenderFeedback(ic.Role, ic.InterviewType, s.qaBlock(transcript))
	raw, err := s.Model.Chat(ctx, s.ModelName, []domain.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		slog.Error("model invocation failed", slog.Any("error", err))
		return domain.FeedbackRecord{}, nil, fmt.Errorf("op=feedback.generate: %w", err)
	}

	fb := s.Extract.Extract(ctx, raw)
	heur := s.Scorer.Score(transcript)
	rec := Normalize(fb, heur)
	if fb.IsEmpty() {
		// Keep whatever free text the model produced so the caller still
		// sees something readable alongside the heuristic scores.
		rec.DetailedAnalysis = strings.TrimSpace(raw)
	}
	observability.ObserveTotalScore(rec.TotalScore)

	conv := domain.NewConversation(transcript)
	s.persist(ctx, ic, transcript, conv, rec, callerID)

	slog.Info("feedback generated",
		slog.String("role", ic.Role),
		slog.String("interview_type", ic.InterviewType),
		slog.Int("questions", len(transcript)),
		slog.Int("total_score", rec.TotalScore),
		slog.Bool("model_record_empty", fb.IsEmpty()))
	return rec, conv, nil
}

// qaBlock renders the transcript the way the coach prompt expects, with
// sanitized answers and a character budget on the whole block.
func (s *FeedbackService) qaBlock(t domain.Transcript) string {
	pairs := make([]string, len(t))
	for i, qa := range t {
		answer := textx.SanitizeText(qa.Answer)
		if answer == "" {
			answer = "No answer provided"
		}
		pairs[i] = fmt.Sprintf("Q: %s\nA: %s", textx.SanitizeText(qa.Question), answer)
	}
	return textx.Truncate(strings.Join(pairs, "\n\n"), s.MaxChars)
}

// persist writes the side-channel artifact and the primary-store row.
// Both writes are best-effort: failures are logged and never fail the
// feedback response. The caller's disconnect must not abort them either.
func (s *FeedbackService) persist(ctx domain.Context, ic domain.InterviewContext, transcript domain.Transcript, conv domain.Conversation, rec domain.FeedbackRecord, callerID string) {
	ctx = context.WithoutCancel(ctx)
	iv := domain.Interview{
		UserID:        callerID,
		Role:          ic.Role,
		InterviewType: ic.InterviewType,
		Duration:      ic.Duration,
		Questions:     transcript.Questions(),
		Answers:       transcript.Answers(),
		Conversation:  conv,
		Feedback:      rec,
		CreatedAt:     time.Now().UTC(),
	}

	path, err := s.Archive.Write(ctx, iv)
	if err != nil {
		observability.PersistenceFailuresTotal.WithLabelValues("archive").Inc()
		slog.Warn("could not write feedback artifact", slog.Any("error", err))
	}
	iv.ArtifactPath = path

	// Anonymous use is valid; the primary store only gets identified rows.
	if callerID == "" || s.Interviews == nil {
		return
	}
	if _, err := s.Interviews.Create(ctx, iv); err != nil {
		observability.PersistenceFailuresTotal.WithLabelValues("store").Inc()
		slog.Error("could not store interview", slog.String("user_id", callerID), slog.Any("error", err))
	}
}
