package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/prepmind/feedback-engine/internal/config"
	"github.com/prepmind/feedback-engine/internal/domain"
	"github.com/prepmind/feedback-engine/internal/usecase"
)

// maxBodyBytes bounds the JSON request body to avoid memory spikes.
const maxBodyBytes = 200 * 1024

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Feedback *usecase.FeedbackService
	DBCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, feedback *usecase.FeedbackService, dbCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Feedback: feedback, DBCheck: dbCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type feedbackRequest struct {
	Role          string   `json:"role" validate:"required,max=200"`
	InterviewType string   `json:"interviewType" validate:"required,max=100"`
	Duration      int      `json:"duration" validate:"gte=0,lte=600"`
	Questions     []string `json:"questions" validate:"max=100,dive,max=4000"`
	Answers       []string `json:"answers" validate:"max=100,dive,max=20000"`
	UserID        string   `json:"userId" validate:"omitempty,max=200"`
	UID           string   `json:"uid" validate:"omitempty,max=200"`
}

// callerID prefers userId and falls back to the legacy uid field.
func (fr feedbackRequest) callerID() string {
	if fr.UserID != "" {
		return fr.UserID
	}
	return fr.UID
}

// transcript zips questions with answers; a missing answer is an empty one.
func (fr feedbackRequest) transcript() domain.Transcript {
	t := make(domain.Transcript, len(fr.Questions))
	for i, q := range fr.Questions {
		answer := ""
		if i < len(fr.Answers) {
			answer = fr.Answers[i]
		}
		t[i] = domain.QA{Question: q, Answer: answer}
	}
	return t
}

type feedbackResponse struct {
	Strengths        []string            `json:"strengths"`
	Improvements     []string            `json:"improvements"`
	Recommendations  []string            `json:"recommendations"`
	Scores           map[string]int      `json:"scores"`
	TotalScore       int                 `json:"totalScore"`
	DetailedAnalysis string              `json:"detailedAnalysis"`
	Conversation     domain.Conversation `json:"conversation"`
}

// FeedbackHandler runs the feedback pipeline for one completed interview.
func (s *Server) FeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		ic := domain.InterviewContext{Role: req.Role, InterviewType: req.InterviewType, Duration: req.Duration}
		rec, conv, err := s.Feedback.Generate(r.Context(), ic, req.transcript(), req.callerID())
		if err != nil {
			LoggerFrom(r).Error("feedback generation failed", "error", err)
			if errors.Is(err, domain.ErrModelUnavailable) {
				// The caller gets a safe generic message, never the raw error.
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"error": apiError{Code: "MODEL_UNAVAILABLE", Message: "failed to generate feedback"},
					"aiFeedback": usecase.FallbackMessage,
				})
				return
			}
			writeError(w, r, err, nil)
			return
		}

		writeJSON(w, http.StatusOK, feedbackResponse{
			Strengths:       rec.Strengths,
			Improvements:    rec.Improvements,
			Recommendations: rec.Recommendations,
			Scores: map[string]int{
				"technicalKnowledge": rec.TechnicalKnowledge,
				"problemSolving":     rec.ProblemSolving,
				"communication":      rec.Communication,
			},
			TotalScore:       rec.TotalScore,
			DetailedAnalysis: rec.DetailedAnalysis,
			Conversation:     conv,
		})
	}
}

// ReadyzHandler reports readiness of external dependencies.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		ready := true
		if s.DBCheck != nil {
			if err := s.DBCheck(r.Context()); err != nil {
				checks["db"] = err.Error()
				ready = false
			} else {
				checks["db"] = "ok"
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
	}
}
