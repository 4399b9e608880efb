package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/querie/querie/internal/config"
	"github.com/querie/querie/internal/domain"
)

// SemanticScholarConnector queries the Semantic Scholar graph API.
type SemanticScholarConnector struct {
	client *http.Client
	pacer  *Pacer
	cfg    config.SourceConfig
}

// NewSemanticScholar creates a Semantic Scholar connector.
func NewSemanticScholar(cfg config.SourceConfig, pacer *Pacer) *SemanticScholarConnector {
	return &SemanticScholarConnector{client: &http.Client{}, pacer: pacer, cfg: cfg}
}

// Source returns the provider id.
func (c *SemanticScholarConnector) Source() domain.Source { return domain.SourceSemanticScholar }

// Fetch queries Semantic Scholar and returns normalized papers.
func (c *SemanticScholarConnector) Fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	maxResults = capResults(maxResults, c.cfg.MaxResults)

	if err := c.pacer.Wait(ctx, domain.SourceSemanticScholar, pace(c.cfg)); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(c.cfg))
	defer cancel()

	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {"paperId,title,abstract,authors,year,url,fieldsOfStudy"},
	}
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("Semantic Scholar", resp.StatusCode)
	}

	var body semanticScholarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(body.Data))
	for _, item := range body.Data {
		if item.PaperID == "" {
			continue
		}

		abstract := CollapseWhitespace(item.Abstract)
		if len(abstract) < c.cfg.MinAbstractLen {
			continue
		}

		paperURL := item.URL
		if paperURL == "" {
			paperURL = "https://www.semanticscholar.org/paper/" + item.PaperID
		}

		p := domain.Paper{
			ID:         "semantic_" + item.PaperID,
			Title:      CollapseWhitespace(item.Title),
			Abstract:   abstract,
			URL:        paperURL,
			Source:     domain.SourceSemanticScholar,
			Year:       item.Year,
			Categories: item.FieldsOfStudy,
		}
		for _, a := range item.Authors {
			if a.Name != "" {
				p.Authors = append(p.Authors, a.Name)
			}
		}

		papers = append(papers, p)
		if len(papers) >= maxResults {
			break
		}
	}
	return papers, nil
}

type semanticScholarResponse struct {
	Data []semanticScholarPaper `json:"data"`
}

type semanticScholarPaper struct {
	PaperID       string                  `json:"paperId"`
	Title         string                  `json:"title"`
	Abstract      string                  `json:"abstract"`
	Authors       []semanticScholarAuthor `json:"authors"`
	Year          int                     `json:"year"`
	URL           string                  `json:"url"`
	FieldsOfStudy []string                `json:"fieldsOfStudy"`
}

type semanticScholarAuthor struct {
	Name string `json:"name"`
}
