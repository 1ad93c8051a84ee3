package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prepmind/feedback-engine/internal/domain"
)

// InterviewRepo persists completed feedback generations using a minimal pgx pool.
type InterviewRepo struct{ Pool PgxPool }

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

// Create stores one interview row and returns its id (generates one if
// empty). The row is tagged with a server-side UTC timestamp at insert.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "interviews"),
	)

	id := iv.ID
	if id == "" {
		id = uuid.New().String()
	}
	questions, err := json.Marshal(iv.Questions)
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	answers, err := json.Marshal(iv.Answers)
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	conversation, err := json.Marshal(iv.Conversation)
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	feedback, err := json.Marshal(iv.Feedback)
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	scores, err := json.Marshal(map[string]int{
		"technicalKnowledge": iv.Feedback.TechnicalKnowledge,
		"problemSolving":     iv.Feedback.ProblemSolving,
		"communication":      iv.Feedback.Communication,
	})
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}

	q := `INSERT INTO interviews (id, user_id, role, interview_type, duration_minutes, questions, answers, conversation, feedback, scores, total_score, artifact_path, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = r.Pool.Exec(ctx, q, id, iv.UserID, iv.Role, iv.InterviewType, iv.Duration,
		questions, answers, conversation, feedback, scores, iv.Feedback.TotalScore, iv.ArtifactPath, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	return id, nil
}
