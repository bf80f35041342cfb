// Package scorer implements the clients for the external collaborators that
// surround the session engine: session bootstrap, per-turn quality scoring,
// completion handoff, and out-of-band status polling. The HTTP client talks
// JSON to a single base URL; the local scorer in local.go implements the same
// interface in-process.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"intake/internal/logging"
)

// Client is the collaborator surface the engine depends on.
type Client interface {
	Bootstrap(ctx context.Context, req BootstrapRequest) (*BootstrapResponse, error)
	Score(ctx context.Context, req ScoreRequest) (*ScoreResponse, error)
	CompleteSession(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Status(ctx context.Context, req StatusRequest) (*StatusResponse, error)
}

// Collaborator endpoint paths, relative to the base URL.
const (
	pathBootstrap = "/v1/onboarding/bootstrap"
	pathScore     = "/v1/onboarding/score"
	pathComplete  = "/v1/onboarding/complete"
	pathStatus    = "/v1/onboarding/status"
)

// HTTPClient implements Client over HTTP JSON.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// HTTPConfig holds configuration for the HTTP collaborator client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPClient creates a collaborator client for the given config.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Bootstrap starts or resumes a session.
func (c *HTTPClient) Bootstrap(ctx context.Context, req BootstrapRequest) (*BootstrapResponse, error) {
	var resp BootstrapResponse
	if err := c.post(ctx, pathBootstrap, req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("bootstrap returned no session id")
	}
	return &resp, nil
}

// Score submits a turn for quality assessment.
func (c *HTTPClient) Score(ctx context.Context, req ScoreRequest) (*ScoreResponse, error) {
	var resp ScoreResponse
	if err := c.post(ctx, pathScore, req, &resp); err != nil {
		return nil, err
	}
	// Partial responses are not errors: default the quality fields so
	// undefined state never reaches the session.
	resp.Quality.Normalize()
	if resp.Coverage != nil {
		resp.Coverage.Quality.Normalize()
		if resp.Coverage.UpdatedAt.IsZero() {
			resp.Coverage.UpdatedAt = time.Now()
		}
	}
	return &resp, nil
}

// CompleteSession submits the final brief and transcript.
func (c *HTTPClient) CompleteSession(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var resp CompletionResponse
	if err := c.post(ctx, pathComplete, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status polls session state out of band.
func (c *HTTPClient) Status(ctx context.Context, req StatusRequest) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.post(ctx, pathStatus, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// errorEnvelope is the JSON error body collaborators return on non-2xx.
type errorEnvelope struct {
	Error *CollaboratorError `json:"error"`
}

func (c *HTTPClient) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("collaborator base URL not configured")
	}

	// Rate limiting: at least 500ms between requests
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 500*time.Millisecond {
		time.Sleep(500*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryScorer, "POST "+path)
	defer timer.StopWithThreshold(10 * time.Second)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logging.ScorerDebug("POST %s (%d bytes)", path, len(payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.ScorerError("POST %s failed: %v", path, err)
		return fmt.Errorf("collaborator request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
			envelope.Error.HTTPStatus = resp.StatusCode
			logging.ScorerError("POST %s: %s", path, envelope.Error.Error())
			return envelope.Error
		}
		logging.ScorerError("POST %s: status %d", path, resp.StatusCode)
		return &CollaboratorError{
			Code:       CodeInternalError,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	logging.ScorerDebug("POST %s: ok (%d bytes)", path, len(body))
	return nil
}
