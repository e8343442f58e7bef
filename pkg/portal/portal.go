// Package portal provides a client for the hackathon portal REST API.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/abrezinsky/hackportal/internal/errors"
	"github.com/abrezinsky/hackportal/internal/logger"
)

// Client defines the interface for portal operations
type Client interface {
	// CreateTeam registers a new team
	CreateTeam(ctx context.Context, creds Credentials) (*TeamProgress, error)
	// Login authenticates a team and returns its progress
	Login(ctx context.Context, creds Credentials) (*TeamProgress, error)
	// StartTimer starts the team's challenge clock
	StartTimer(ctx context.Context, creds Credentials) error
	// Leaderboard fetches the ranked entries for a scope
	Leaderboard(ctx context.Context, scope Scope) ([]LeaderboardEntry, error)
	// SubmitFinal records the team's repository URL
	SubmitFinal(ctx context.Context, sub FinalSubmission) (*SubmissionReceipt, error)
	// ValidateChallenge checks a stage answer URL
	ValidateChallenge(ctx context.Context, v ChallengeValidation) (*ValidationResult, error)
	// Health checks the API is reachable
	Health(ctx context.Context) error
	// PDFURL returns the URL of a stage requirements PDF
	PDFURL(stage int) string
	// DatasetURL returns the URL of a challenge dataset CSV
	DatasetURL(name string) string
	// ResolveURL turns a server-relative reference into an absolute URL
	ResolveURL(ref string) string
	// BaseURL returns the configured API base URL
	BaseURL() string
}

// HTTPClient is a real HTTP client for the portal API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient creates a new portal client
func NewHTTPClient(baseURL string, log logger.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// PDFURL returns the URL of a stage requirements PDF
func (c *HTTPClient) PDFURL(stage int) string {
	return fmt.Sprintf("%s/pdfs/stage%d.pdf", c.baseURL, stage)
}

// DatasetURL returns the URL of a challenge dataset CSV
func (c *HTTPClient) DatasetURL(name string) string {
	return fmt.Sprintf("%s/data/%s.csv", c.baseURL, url.PathEscape(name))
}

// ResolveURL turns a server-relative reference into an absolute URL
func (c *HTTPClient) ResolveURL(ref string) string {
	return resolveURL(c.baseURL, ref)
}

func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// doJSON executes a request against the portal and decodes the JSON response into out.
// A transport failure becomes an ErrTransport error; a non-2xx response becomes
// ErrRejected carrying the body's detail string when there is one.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Transport(err)
		}
	}

	apiURL := c.baseURL + path
	requestID := uuid.NewString()

	var body io.Reader
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternal, "failed to encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("Portal request", "method", method, "url", apiURL, "request_id", requestID)
	if c.log.IsRequestTracingEnabled() && payload != nil {
		c.log.Debug("Portal request body", "request_id", requestID, "body", redactPassword(payload))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Transport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transport(fmt.Errorf("failed to read response: %w", err))
	}

	c.log.Debug("Portal response", "status", resp.StatusCode, "request_id", requestID)
	if c.log.IsRequestTracingEnabled() {
		c.log.Debug("Portal response body", "request_id", requestID, "body", string(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Rejected(resp.StatusCode, detailString(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal, "failed to parse response")
	}
	return nil
}

// redactPassword masks the password field of a traced request body
func redactPassword(payload []byte) string {
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return string(payload)
	}
	if _, ok := m["password"]; ok {
		m["password"] = "***"
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// CreateTeam registers a new team
func (c *HTTPClient) CreateTeam(ctx context.Context, creds Credentials) (*TeamProgress, error) {
	var progress TeamProgress
	if err := c.doJSON(ctx, http.MethodPost, "/teams/create", creds, &progress); err != nil {
		return nil, err
	}
	if progress.TeamName == "" {
		progress.TeamName = creds.TeamName
	}
	if progress.Region == "" {
		progress.Region = creds.Region
	}
	return &progress, nil
}

// Login authenticates a team and returns its progress
func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*TeamProgress, error) {
	var progress TeamProgress
	if err := c.doJSON(ctx, http.MethodPost, "/teams/login", creds, &progress); err != nil {
		return nil, err
	}
	c.log.Info("Portal login successful", "team", progress.TeamName, "stage", progress.CurrentStage)
	return &progress, nil
}

// StartTimer starts the team's challenge clock. Any 2xx is success; the body is ignored.
func (c *HTTPClient) StartTimer(ctx context.Context, creds Credentials) error {
	return c.doJSON(ctx, http.MethodPost, "/teams/start-timer", creds, nil)
}

// Leaderboard fetches the ranked entries for a scope
func (c *HTTPClient) Leaderboard(ctx context.Context, scope Scope) ([]LeaderboardEntry, error) {
	path := "/leaderboard/global"
	if region, ok := scope.Region(); ok {
		path = "/leaderboard/regional/" + url.PathEscape(string(region))
	}

	var entries []LeaderboardEntry
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SubmitFinal records the team's repository URL
func (c *HTTPClient) SubmitFinal(ctx context.Context, sub FinalSubmission) (*SubmissionReceipt, error) {
	var receipt SubmissionReceipt
	if err := c.doJSON(ctx, http.MethodPost, "/api/submit", sub, &receipt); err != nil {
		return nil, err
	}
	if receipt.BitbucketURL == "" {
		receipt.BitbucketURL = sub.BitbucketURL
	}
	return &receipt, nil
}

// ValidateChallenge checks a stage answer URL
func (c *HTTPClient) ValidateChallenge(ctx context.Context, v ChallengeValidation) (*ValidationResult, error) {
	var result ValidationResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/challenges/validate", v, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks the API is reachable
func (c *HTTPClient) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return err
	}
	if status.Status != "ok" && status.Status != "healthy" {
		return apperrors.Internalf("unexpected health status %q", status.Status)
	}
	return nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
