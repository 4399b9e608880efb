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

// CrossrefConnector queries the Crossref works API.
type CrossrefConnector struct {
	client *http.Client
	pacer  *Pacer
	cfg    config.SourceConfig
}

// NewCrossref creates a Crossref connector.
func NewCrossref(cfg config.SourceConfig, pacer *Pacer) *CrossrefConnector {
	return &CrossrefConnector{client: &http.Client{}, pacer: pacer, cfg: cfg}
}

// Source returns the provider id.
func (c *CrossrefConnector) Source() domain.Source { return domain.SourceCrossref }

// Fetch queries Crossref and returns normalized papers. Crossref
// records often lack abstracts, so more rows than needed are requested
// and entries without one are skipped.
func (c *CrossrefConnector) Fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Crossref query")
	}
	maxResults = capResults(maxResults, c.cfg.MaxResults)

	if err := c.pacer.Wait(ctx, domain.SourceCrossref, pace(c.cfg)); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(c.cfg))
	defer cancel()

	rows := maxResults * 2
	if rows > 100 {
		rows = 100
	}
	params := url.Values{
		"query":  {query},
		"rows":   {strconv.Itoa(rows)},
		"select": {"DOI,title,abstract,author,published,subject,URL"},
		"sort":   {"relevance"},
	}
	if c.cfg.Email != "" {
		params.Set("mailto", c.cfg.Email)
	}
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("Crossref", resp.StatusCode)
	}

	var body crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}

	papers := make([]domain.Paper, 0, maxResults)
	for _, item := range body.Message.Items {
		if item.DOI == "" || item.Abstract == "" || len(item.Title) == 0 {
			continue
		}

		abstract := CleanAbstract(item.Abstract)
		if len(abstract) < c.cfg.MinAbstractLen {
			continue
		}

		p := domain.Paper{
			ID:       "crossref_" + sanitizeDOI(item.DOI),
			Title:    CollapseWhitespace(item.Title[0]),
			Abstract: abstract,
			URL:      "https://doi.org/" + item.DOI,
			Source:   domain.SourceCrossref,
		}

		for _, a := range item.Authors {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		p.Categories = append(p.Categories, item.Subjects...)
		if parts := item.Published.DateParts; len(parts) > 0 && len(parts[0]) > 0 {
			p.Year = parts[0][0]
		}

		papers = append(papers, p)
		if len(papers) >= maxResults {
			break
		}
	}
	return papers, nil
}

type crossrefResponse struct {
	Message struct {
		Items []crossrefItem `json:"items"`
	} `json:"message"`
}

type crossrefItem struct {
	DOI       string           `json:"DOI"`
	Title     []string         `json:"title"`
	Abstract  string           `json:"abstract"`
	Authors   []crossrefAuthor `json:"author"`
	Subjects  []string         `json:"subject"`
	Published crossrefDate     `json:"published"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// sanitizeDOI makes a DOI safe for use inside a record key.
func sanitizeDOI(doi string) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(doi)
}
