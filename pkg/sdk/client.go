package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// Client talks to one querie API endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search answers a research question: ranked papers plus a web-grounded
// summary. Rejected questions return an APIError with CodeInvalidQuery.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	var out SearchResult
	err := c.post(ctx, "/search", map[string]string{"query": query}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest fetches papers for a topic and indexes them for later IndexSearch
// calls. maxPerSource of 0 uses the server default.
func (c *Client) Ingest(ctx context.Context, topic string, maxPerSource int) (*IngestReport, error) {
	req := map[string]any{"topic": topic}
	if maxPerSource > 0 {
		req["max_per_source"] = maxPerSource
	}
	var out IngestReport
	if err := c.post(ctx, "/index/ingest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IndexSearch answers a question from previously ingested papers only.
func (c *Client) IndexSearch(ctx context.Context, query string, topK int) ([]Paper, error) {
	req := map[string]any{"query": query}
	if topK > 0 {
		req["top_k"] = topK
	}
	var out struct {
		Papers []Paper `json:"papers"`
	}
	if err := c.post(ctx, "/index/search", req, &out); err != nil {
		return nil, err
	}
	return out.Papers, nil
}

// Health reports component availability. A degraded server still returns a
// Health value along with the APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &out, &APIError{StatusCode: resp.StatusCode, Code: "degraded", Message: "service degraded"}
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, out any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querie api: %w", err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = CodeInternalError
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
