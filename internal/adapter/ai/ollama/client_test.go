package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepmind/feedback-engine/internal/domain"
)

func TestClient_Chat_Success(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": {"content": "brief feedback"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	reply, err := c.Chat(context.Background(), "phi3:mini", []domain.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, "brief feedback", reply)
	assert.Equal(t, "/api/chat", gotPath)
	assert.Equal(t, "phi3:mini", gotBody["model"])
	assert.Equal(t, false, gotBody["stream"])
}

func TestClient_Chat_TrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_, _ = w.Write([]byte(`{"message": {"content": "ok"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	_, err := c.Chat(context.Background(), "phi3:mini", nil)
	require.NoError(t, err)
}

func TestClient_Chat_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Chat(context.Background(), "missing:model", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_Chat_ConnectionRefused(t *testing.T) {
	t.Parallel()

	// Reserve a port, then close it so the connection is refused.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Chat(context.Background(), "phi3:mini", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=ollama.chat")
}

func TestClient_Chat_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	_, err := c.Chat(context.Background(), "phi3:mini", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
