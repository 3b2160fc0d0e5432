package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reconciler/internal/registry"
	"reconciler/internal/services"
	"reconciler/internal/session"
)

// SearchResult is a single entry of the search payload.
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ReferenceDate string `json:"reference_date"`
}

// SearchResponse models the search payload.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// Entity models a candidate detail view.
type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Expanded    bool   `json:"expanded"`
	DocumentURL string `json:"document_url"`
}

// Client talks to the registry HTTP API. It satisfies the search, detail, and
// session contracts used by the reconciler.
type Client struct {
	baseURL        string
	apiKey         string
	userAgent      string
	healthPath     string
	settleTimeout  time.Duration
	settleInterval time.Duration
	httpClient     *http.Client
}

var _ session.Session = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sends the key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithHealthPath enables the focus and ping health check against base+path.
func WithHealthPath(path string) Option {
	return func(c *Client) {
		path = strings.TrimSpace(path)
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		c.healthPath = path
	}
}

// WithSettle bounds how long Requery waits for a stale view and how often it polls.
func WithSettle(timeout, interval time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.settleTimeout = timeout
		}
		if interval > 0 {
			c.settleInterval = interval
		}
	}
}

// New creates a registry client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("registry base url required")
	}
	client := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		userAgent:      "reconciler/dev",
		settleTimeout:  10 * time.Second,
		settleInterval: 250 * time.Millisecond,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements session.Session.
func (c *Client) Name() string { return "registry" }

// Focus implements session.Session. Without a health path it does nothing.
func (c *Client) Focus(ctx context.Context) error {
	if c.healthPath == "" {
		return nil
	}
	return c.Ping(ctx)
}

// Close implements session.Session.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ping checks that the registry answers HTTP requests.
func (c *Client) Ping(ctx context.Context) error {
	path := c.healthPath
	if path == "" {
		path = "/"
	}
	resp, latency, err := c.do(ctx, http.MethodGet, c.baseURL+path)
	if err != nil {
		return services.Wrap(services.ErrLookupUnavailable, "registry", "ping", fmt.Sprintf("latency=%v", latency), err)
	}
	defer drain(resp)
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrLookupUnavailable, "registry", "ping", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return nil
}

// Search queries the registry for key. A 404 is an empty result, not an error.
func (c *Client) Search(ctx context.Context, key string) ([]registry.Candidate, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", "search", "query must not be empty", nil)
	}
	endpoint, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "search", "parse url", err)
	}
	params := url.Values{}
	params.Set("query", key)
	endpoint.RawQuery = params.Encode()

	resp, latency, err := c.do(ctx, http.MethodGet, endpoint.String())
	if err != nil {
		return nil, services.Wrap(services.ErrLookupUnavailable, "registry", "search", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrLookupUnavailable, "registry", "search", fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrLookupUnavailable, "registry", "search", "decode response", err)
	}
	candidates := make([]registry.Candidate, 0, len(payload.Results))
	for _, result := range payload.Results {
		if strings.TrimSpace(result.ID) == "" {
			continue
		}
		candidates = append(candidates, registry.NewCandidate(result.Name, parseDate(result.ReferenceDate), result.ID))
	}
	return candidates, nil
}

// OpenDetail opens the candidate's detail view.
func (c *Client) OpenDetail(ctx context.Context, candidate registry.Candidate) (registry.DetailHandle, error) {
	entity, err := c.fetchEntity(ctx, candidate.Handle, "open_detail")
	if err != nil {
		return registry.DetailHandle{}, err
	}
	return registry.DetailHandle{ID: entity.ID, Name: entity.Name}, nil
}

// ExpandProvenance asks the registry to expand the provenance section.
func (c *Client) ExpandProvenance(ctx context.Context, handle registry.DetailHandle) error {
	resp, latency, err := c.do(ctx, http.MethodPost, c.entityURL(handle.ID)+"/expand")
	if err != nil {
		return services.Wrap(services.ErrLookupUnavailable, "registry", "expand", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer drain(resp)
	return statusError(resp.StatusCode, "expand", latency)
}

// ReadStatus reads the status field. An empty status means the view has not
// rendered yet and is reported as stale.
func (c *Client) ReadStatus(ctx context.Context, handle registry.DetailHandle) (string, error) {
	entity, err := c.fetchEntity(ctx, handle.ID, "read_status")
	if err != nil {
		return "", err
	}
	status := strings.TrimSpace(entity.Status)
	if status == "" {
		return "", services.Wrap(services.ErrStaleView, "registry", "read_status", "status not rendered", nil)
	}
	return status, nil
}

// ReadDocumentRef returns the document reference when the provenance section
// is expanded and carries one.
func (c *Client) ReadDocumentRef(ctx context.Context, handle registry.DetailHandle) (string, bool, error) {
	entity, err := c.fetchEntity(ctx, handle.ID, "read_document_ref")
	if err != nil {
		return "", false, err
	}
	ref := strings.TrimSpace(entity.DocumentURL)
	if !entity.Expanded || ref == "" {
		return "", false, nil
	}
	return ref, true, nil
}

// Requery re-issues the detail query and waits until the view is no longer stale.
func (c *Client) Requery(ctx context.Context, handle registry.DetailHandle) error {
	return session.WaitUntil(ctx, c.settleTimeout, c.settleInterval, func(ctx context.Context) (bool, error) {
		_, err := c.fetchEntity(ctx, handle.ID, "requery")
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, services.ErrStaleView):
			return false, nil
		default:
			return false, err
		}
	})
}

func (c *Client) fetchEntity(ctx context.Context, id, operation string) (*Entity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrValidation, "registry", operation, "empty entity id", nil)
	}
	resp, latency, err := c.do(ctx, http.MethodGet, c.entityURL(id))
	if err != nil {
		return nil, services.Wrap(services.ErrLookupUnavailable, "registry", operation, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer drain(resp)
	if err := statusError(resp.StatusCode, operation, latency); err != nil {
		return nil, err
	}
	var entity Entity
	if err := json.NewDecoder(resp.Body).Decode(&entity); err != nil {
		return nil, services.Wrap(services.ErrLookupUnavailable, "registry", operation, "decode entity", err)
	}
	if entity.ID == "" {
		entity.ID = id
	}
	return &entity, nil
}

func (c *Client) entityURL(id string) string {
	return c.baseURL + "/entities/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, endpoint string) (*http.Response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	return resp, time.Since(start), err
}

func statusError(code int, operation string, latency time.Duration) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "registry", operation, fmt.Sprintf("returned %d", code), nil)
	case code == http.StatusConflict:
		return services.Wrap(services.ErrStaleView, "registry", operation, fmt.Sprintf("returned %d", code), nil)
	default:
		return services.Wrap(services.ErrLookupUnavailable, "registry", operation, fmt.Sprintf("returned %d (latency=%v)", code, latency), nil)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
