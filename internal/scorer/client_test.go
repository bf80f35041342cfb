package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/types"
)

func TestHTTPClient_Score_DefaultsPartialQuality(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathScore, r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ScoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)

		// Scorer omits clarity and overall entirely.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"agent_response": "Tell me more about your customers.",
			"quality_signals": {"completeness": {"label": "partial", "score": 0.4}},
			"stage_snapshot": {"stage": 1, "coverage": 40, "brief_fields": ["business_concept"]},
			"stage_progress": {"current_stage": 1, "overall_progress": 12}
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, APIKey: "sk-test"})
	resp, err := c.Score(context.Background(), ScoreRequest{
		SessionID:  "sess-1",
		NewMessage: types.Message{ID: "m1", Role: types.RoleUser, Content: "We help busy parents plan meals", Stage: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "Tell me more about your customers.", resp.AgentResponse)
	assert.Equal(t, "partial", resp.Quality.Completeness.Label)
	assert.Equal(t, 0.4, resp.Quality.Completeness.Score)
	// Omitted fields must come back defaulted, never zero-valued.
	assert.Equal(t, types.DefaultClarityLabel, resp.Quality.Clarity.Label)
	assert.Equal(t, types.DefaultScore, resp.Quality.Overall)

	require.NotNil(t, resp.Coverage)
	assert.Equal(t, 40.0, resp.Coverage.Coverage)
	assert.Equal(t, types.DefaultClarityLabel, resp.Coverage.Quality.Clarity.Label)
	assert.False(t, resp.Coverage.UpdatedAt.IsZero())
}

func TestHTTPClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": "SESSION_NOT_FOUND", "message": "no such session"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	_, err := c.Status(context.Background(), StatusRequest{SessionID: "missing"})

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, CodeSessionNotFound, collabErr.Code)
	assert.Equal(t, http.StatusNotFound, collabErr.HTTPStatus)
}

func TestHTTPClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	_, err := c.Bootstrap(context.Background(), BootstrapRequest{UserID: "u1"})

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, CodeInternalError, collabErr.Code)
}

func TestHTTPClient_Bootstrap_RejectsEmptySessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_stage": 1}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL})
	_, err := c.Bootstrap(context.Background(), BootstrapRequest{UserID: "u1"})
	assert.Error(t, err)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: 30 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Score(ctx, ScoreRequest{SessionID: "s"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPClient_NoBaseURL(t *testing.T) {
	c := NewHTTPClient(HTTPConfig{})
	_, err := c.Score(context.Background(), ScoreRequest{SessionID: "s"})
	assert.Error(t, err)
}

func TestPlainLanguage(t *testing.T) {
	assert.Contains(t, PlainLanguage(CodeSessionNotFound), "start a new conversation")
	assert.Contains(t, PlainLanguage("SOMETHING_ELSE"), "try again")
}

func TestDescribe(t *testing.T) {
	wrapped := fmt.Errorf("send failed: %w", &CollaboratorError{Code: CodeAnalysisFailed})
	assert.Contains(t, Describe(wrapped), "analysis couldn't be completed")
	assert.Equal(t, "plain failure", Describe(errors.New("plain failure")))
	assert.Empty(t, Describe(nil))
}
