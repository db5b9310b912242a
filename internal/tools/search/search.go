// Package search answers course material questions from a semantic search
// index over REST.
package search

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

	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// ToolName is the function name exposed to the model.
const ToolName = "perform_search_based_qna"

const (
	defaultAPIVersion = "2023-11-01"
	defaultTop        = 2
	degradedMessage   = "We had an issue searching the course material. Please check back in some time"
)

// ErrNotConfigured is returned when no search endpoint is configured.
var ErrNotConfigured = errors.New("search: endpoint not configured")

// Config locates the index.
type Config struct {
	URL            string
	APIKey         string
	Index          string
	SemanticConfig string
	APIVersion     string
	// Top is the number of chunks returned to the model.
	Top int
}

// Document is one search hit.
type Document struct {
	Title string `json:"title"`
	Chunk string `json:"chunk"`
}

// APIError is a non-2xx response from the search service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search: status %d: %s", e.StatusCode, e.Body)
}

// Client queries the search index.
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
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Top <= 0 {
		cfg.Top = defaultTop
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
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

type searchRequest struct {
	Search                string `json:"search"`
	QueryType             string `json:"queryType"`
	SemanticConfiguration string `json:"semanticConfiguration,omitempty"`
	Top                   int    `json:"top"`
	Select                string `json:"select"`
}

type searchResponse struct {
	Value []Document `json:"value"`
}

// Search runs a semantic query and returns at most Top documents.
func (c *Client) Search(ctx context.Context, query string) ([]Document, error) {
	if c.cfg.URL == "" || c.cfg.Index == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(searchRequest{
		Search:                query,
		QueryType:             "semantic",
		SemanticConfiguration: c.cfg.SemanticConfig,
		Top:                   c.cfg.Top,
		Select:                "title,chunk",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		c.cfg.URL, url.PathEscape(c.cfg.Index), url.QueryEscape(c.cfg.APIVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var out searchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	docs := out.Value
	if len(docs) > c.cfg.Top {
		docs = docs[:c.cfg.Top]
	}
	for _, doc := range docs {
		c.logger.Debug("search hit", zap.String("title", doc.Title), zap.Int("chunk_len", len(doc.Chunk)))
	}
	return docs, nil
}

// FormatContext wraps every chunk in document markers for the model.
func FormatContext(docs []Document) string {
	var b strings.Builder
	for _, doc := range docs {
		b.WriteString(" --- Document context start ---")
		b.WriteString(doc.Chunk)
		b.WriteString("\n ---End of Document ---\n")
	}
	return b.String()
}

// QueryArgs are the arguments of the search tool.
type QueryArgs struct {
	Query string `json:"query"`
}

// Tool exposes the client as perform_search_based_qna.
func (c *Client) Tool() *tools.Tool {
	return tools.MustNewFunc(ToolName,
		"call this function to respond to the user query on subjects like Accountancy, Chemistry & Physics, based on the course material.",
		func(ctx context.Context, args QueryArgs) (string, error) {
			c.logger.Info("searching course material", zap.String("query", args.Query))
			docs, err := c.Search(ctx, args.Query)
			if err != nil {
				return "", err
			}
			return FormatContext(docs), nil
		},
		tools.WithDegradedMessage(degradedMessage),
	)
}
