// Package issues files and looks up grievances in a Jira-compatible issue
// tracker over its REST API.
package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no tracker URL is configured.
var ErrNotConfigured = errors.New("issues: tracker not configured")

// Config locates the tracker and the grievance project.
type Config struct {
	URL         string
	Username    string
	APIKey      string
	ProjectKey  string
	ProjectName string
	IssueType   string
}

// Issue is the subset of tracker fields reported back to the user.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Fields of an Issue.
type Fields struct {
	Priority    *Named  `json:"priority"`
	Status      *Status `json:"status"`
	Description string  `json:"description"`
	DueDate     string  `json:"duedate"`
}

// Named is a field carrying only a display name.
type Named struct {
	Name string `json:"name"`
}

// Status is an issue status with its category.
type Status struct {
	Name           string `json:"name"`
	StatusCategory struct {
		Key string `json:"key"`
	} `json:"statusCategory"`
}

// APIError is a non-2xx response from the tracker.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("issues: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the tracker REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.IssueType == "" {
		cfg.IssueType = "Task"
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 20 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks the credentials against the current user endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/rest/api/2/myself", nil, nil)
}

type searchResponse struct {
	Issues []Issue `json:"issues"`
}

// FindByID returns the grievance with id in the configured project. The bool
// is false when no such issue exists.
func (c *Client) FindByID(ctx context.Context, id string) (Issue, bool, error) {
	jql := fmt.Sprintf("project = %s AND id = %s", c.cfg.ProjectName, id)
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("fields", "priority,status,description,duedate")

	var out searchResponse
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/search?"+query.Encode(), nil, &out); err != nil {
		return Issue{}, false, err
	}
	if len(out.Issues) == 0 {
		return Issue{}, false, nil
	}
	return out.Issues[0], true, nil
}

type createRequest struct {
	Fields createFields `json:"fields"`
}

type createFields struct {
	Project     keyRef `json:"project"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IssueType   Named  `json:"issuetype"`
}

type keyRef struct {
	Key string `json:"key"`
}

// Create files a new issue and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, summary, description string) (Issue, error) {
	req := createRequest{Fields: createFields{
		Project:     keyRef{Key: c.cfg.ProjectKey},
		Summary:     summary,
		Description: description,
		IssueType:   Named{Name: c.cfg.IssueType},
	}}
	var out Issue
	if err := c.do(ctx, http.MethodPost, "/rest/api/2/issue", req, &out); err != nil {
		return Issue{}, err
	}
	if out.ID == "" {
		return Issue{}, errors.New("issues: create response without id")
	}
	c.logger.Info("grievance registered", zap.String("id", out.ID), zap.String("key", out.Key))
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	if c.cfg.URL == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
