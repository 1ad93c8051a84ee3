package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepmind/feedback-engine/internal/domain"
)

func sampleInterview(userID string) domain.Interview {
	return domain.Interview{
		UserID:        userID,
		Role:          "Backend Engineer",
		InterviewType: domain.InterviewTechnical,
		Duration:      30,
		Questions:     []string{"What is a goroutine?"},
		Answers:       []string{"A lightweight thread managed by the Go runtime"},
		Conversation: domain.Conversation{
			{Question: "What is a goroutine?", Answer: "A lightweight thread managed by the Go runtime", Answered: true},
		},
		Feedback: domain.FeedbackRecord{
			Strengths:          []string{"precise"},
			TechnicalKnowledge: 8,
			ProblemSolving:     7,
			Communication:      6,
			TotalScore:         21,
		},
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileArchiver_Write(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := NewFileArchiver(dir)

	path, err := a.Write(context.Background(), sampleInterview("user-42"))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "user-42-"), "artifact name should carry the caller id: %s", base)
	assert.True(t, strings.HasSuffix(base, ".json"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got artifact
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "user-42", got.UserID)
	assert.Equal(t, "Backend Engineer", got.Role)
	assert.Equal(t, 21, got.Feedback.TotalScore)
	require.Len(t, got.Conversation, 1)
	assert.True(t, got.Conversation[0].Answered)
}

func TestFileArchiver_Write_Anonymous(t *testing.T) {
	t.Parallel()

	a := NewFileArchiver(t.TempDir())

	path, err := a.Write(context.Background(), sampleInterview(""))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "anon-"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	// Anonymous artifacts omit the user id entirely.
	assert.NotContains(t, string(b), `"userId"`)
}

func TestFileArchiver_Write_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "feedback")
	a := NewFileArchiver(dir)

	path, err := a.Write(context.Background(), sampleInterview("u"))
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFileArchiver_Write_UniqueNames(t *testing.T) {
	t.Parallel()

	a := NewFileArchiver(t.TempDir())
	iv := sampleInterview("u")

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		path, err := a.Write(context.Background(), iv)
		require.NoError(t, err)
		_, dup := seen[path]
		require.False(t, dup, "duplicate artifact path %s", path)
		seen[path] = struct{}{}
	}
}
