// Package serp queries SerpAPI for grounding web evidence. Results from
// forums, social media, and other low-trust surfaces are filtered out
// before they reach the summarizer. A circuit breaker shields the pipeline
// when the provider degrades.
package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
	"github.com/querie/querie/internal/metrics"
)

// Client is a SerpAPI web search client.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	apiKey     string
	numResults int
	logger     *zap.Logger
}

// Config holds the web search provider settings.
type Config struct {
	BaseURL    string
	APIKey     string
	NumResults int
	TimeoutSec int
	Logger     *zap.Logger
}

// New creates a SerpAPI client. The breaker opens after repeated provider
// failures and recovers on its own once the provider stabilizes.
func New(cfg Config) *Client {
	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "serpapi",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("web search breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		breaker:    breaker,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		numResults: cfg.NumResults,
		logger:     logger,
	}
}

// Search runs a Google search through SerpAPI and returns filtered organic
// results plus the featured snippet when present.
func (c *Client) Search(ctx context.Context, query string) ([]domain.WebResult, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.search(ctx, query)
	})
	if err != nil {
		metrics.WebSearchTotal.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("web search circuit open: %w", domain.ErrWebSearchUnavailable)
		}
		return nil, fmt.Errorf("web search: %w: %w", err, domain.ErrWebSearchUnavailable)
	}

	metrics.WebSearchTotal.WithLabelValues("success").Inc()
	return out.([]domain.WebResult), nil
}

func (c *Client) search(ctx context.Context, query string) ([]domain.WebResult, error) {
	params := url.Values{
		"api_key": {c.apiKey},
		"q":       {query},
		"num":     {strconv.Itoa(c.numResults)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned HTTP %d", resp.StatusCode)
	}

	var body serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing SerpAPI response: %w", err)
	}

	results := make([]domain.WebResult, 0, c.numResults)
	for _, r := range body.OrganicResults {
		if !validSource(r.Link) {
			continue
		}
		results = append(results, domain.WebResult{
			Title:   r.Title,
			Link:    r.Link,
			Snippet: r.Snippet,
			Domain:  extractDomain(r.Link),
			Source:  r.Source,
			Date:    r.Date,
		})
		if len(results) >= c.numResults {
			break
		}
	}

	// The featured snippet carries Google's own extraction; keep it as an
	// extra evidence item when organic results are thin.
	if body.AnswerBox != nil && body.AnswerBox.Snippet != "" && body.AnswerBox.Link != "" && validSource(body.AnswerBox.Link) {
		results = append(results, domain.WebResult{
			Title:   body.AnswerBox.Title,
			Link:    body.AnswerBox.Link,
			Snippet: body.AnswerBox.Snippet,
			Domain:  extractDomain(body.AnswerBox.Link),
			Source:  "featured_snippet",
		})
	}

	return results, nil
}

type serpResponse struct {
	OrganicResults []serpOrganicResult `json:"organic_results"`
	AnswerBox      *serpAnswerBox      `json:"answer_box"`
}

type serpOrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

type serpAnswerBox struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
