// Package domain holds the core entities and ports of the feedback engine.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrUpstreamTimeout  = errors.New("upstream timeout")
	ErrInternal         = errors.New("internal error")
)

// Interview types recognized by the surrounding system. The engine accepts
// any caller-defined value; these are only the common ones.
const (
	InterviewTechnical = "Technical"
	InterviewHR        = "HR"
)

// QA is one question/answer pair of a transcript. An empty Answer means the
// question was not answered, which is distinct from an answer whose text says
// it was skipped.
type QA struct {
	Question string
	Answer   string
}

// Transcript is the ordered question/answer sequence of one interview
// session. Any length, including zero, is valid.
type Transcript []QA

// Questions returns the question texts in order.
func (t Transcript) Questions() []string {
	out := make([]string, len(t))
	for i, qa := range t {
		out[i] = qa.Question
	}
	return out
}

// Answers returns the answer texts in question order.
func (t Transcript) Answers() []string {
	out := make([]string, len(t))
	for i, qa := range t {
		out[i] = qa.Answer
	}
	return out
}

// InterviewContext describes the interview a transcript belongs to.
// Immutable for the duration of one feedback generation.
type InterviewContext struct {
	Role          string
	InterviewType string
	Duration      int // minutes
}

// FeedbackRecord is the normalized outcome of one feedback generation.
// Invariants: category scores are integers in [0,10]; TotalScore is always
// their sum; list fields hold at most 10 unique trimmed entries.
type FeedbackRecord struct {
	Strengths          []string `json:"strengths"`
	Improvements       []string `json:"improvements"`
	Recommendations    []string `json:"recommendations"`
	TechnicalKnowledge int      `json:"technicalKnowledge"`
	ProblemSolving     int      `json:"problemSolving"`
	Communication      int      `json:"communication"`
	TotalScore         int      `json:"totalScore"`
	DetailedAnalysis   string   `json:"detailedAnalysis"`
}

// ConversationItem is one transcript entry annotated with whether it was
// answered at all.
type ConversationItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Answered bool   `json:"answered"`
}

// Conversation is the read-only view of a transcript attached to persisted
// records.
type Conversation []ConversationItem

// NewConversation derives the conversation view from a transcript.
func NewConversation(t Transcript) Conversation {
	c := make(Conversation, len(t))
	for i, qa := range t {
		c[i] = ConversationItem{
			Question: qa.Question,
			Answer:   qa.Answer,
			Answered: len(strings.TrimSpace(qa.Answer)) > 0,
		}
	}
	return c
}

// Interview is what the persistence gateway stores: one record per feedback
// generation.
type Interview struct {
	ID            string
	UserID        string
	Role          string
	InterviewType string
	Duration      int
	Questions     []string
	Answers       []string
	Conversation  Conversation
	Feedback      FeedbackRecord
	ArtifactPath  string
	CreatedAt     time.Time
}

// ChatMessage is one message of a model conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelClient (port) is a single inference backend, either the local runtime
// or a hosted endpoint. Implementations return the raw reply text.
type ModelClient interface {
	Chat(ctx Context, model string, messages []ChatMessage) (string, error)
}

// InterviewRepository (port) is the primary long-term store.
type InterviewRepository interface {
	Create(ctx Context, iv Interview) (string, error)
}

// Archiver (port) writes the side-channel recovery artifact for one feedback
// generation and returns its path.
type Archiver interface {
	Write(ctx Context, iv Interview) (string, error)
}

// Context is an alias so the domain package does not spell out std context
// everywhere; adapters and usecases pass context.Context through.
type Context = context.Context
