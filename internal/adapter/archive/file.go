// Package archive writes the per-generation recovery artifact to disk.
package archive

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/prepmind/feedback-engine/internal/domain"
)

// FileArchiver writes one JSON artifact per feedback generation, named by
// caller identity and a timestamp-ordered ULID. The artifact duplicates the
// primary-store payload so a generation survives a store outage.
type FileArchiver struct {
	dir string

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewFileArchiver constructs an archiver rooted at dir.
func NewFileArchiver(dir string) *FileArchiver {
	return &FileArchiver{
		dir:     dir,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // Weak random is sufficient for ULID entropy.
	}
}

// artifact is the on-disk payload shape.
type artifact struct {
	UserID        string                `json:"userId,omitempty"`
	Role          string                `json:"role"`
	InterviewType string                `json:"interviewType"`
	Duration      int                   `json:"duration"`
	Questions     []string              `json:"questions"`
	Answers       []string              `json:"answers"`
	Conversation  domain.Conversation   `json:"conversation"`
	Feedback      domain.FeedbackRecord `json:"feedback"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// Write stores the artifact and returns its path.
func (a *FileArchiver) Write(_ domain.Context, iv domain.Interview) (string, error) {
	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return "", fmt.Errorf("op=archive.write: %w", err)
	}

	caller := iv.UserID
	if caller == "" {
		caller = "anon"
	}
	name := fmt.Sprintf("%s-%s.json", caller, a.newID())
	path := filepath.Join(a.dir, name)

	b, err := json.MarshalIndent(artifact{
		UserID:        iv.UserID,
		Role:          iv.Role,
		InterviewType: iv.InterviewType,
		Duration:      iv.Duration,
		Questions:     iv.Questions,
		Answers:       iv.Answers,
		Conversation:  iv.Conversation,
		Feedback:      iv.Feedback,
		CreatedAt:     iv.CreatedAt,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("op=archive.write: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("op=archive.write: %w", err)
	}
	return path, nil
}

func (a *FileArchiver) newID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), a.entropy)
	if err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return id.String()
}
