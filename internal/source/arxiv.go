package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/querie/querie/internal/config"
	"github.com/querie/querie/internal/domain"
)

// ArxivConnector queries the arXiv Atom API.
type ArxivConnector struct {
	client *http.Client
	pacer  *Pacer
	cfg    config.SourceConfig
}

// NewArxiv creates an arXiv connector.
func NewArxiv(cfg config.SourceConfig, pacer *Pacer) *ArxivConnector {
	return &ArxivConnector{client: &http.Client{}, pacer: pacer, cfg: cfg}
}

// Source returns the provider id.
func (c *ArxivConnector) Source() domain.Source { return domain.SourceArxiv }

// Fetch queries arXiv and returns normalized papers.
func (c *ArxivConnector) Fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	maxResults = capResults(maxResults, c.cfg.MaxResults)

	if err := c.pacer.Wait(ctx, domain.SourceArxiv, pace(c.cfg)); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(c.cfg))
	defer cancel()

	params := url.Values{
		"search_query": {"all:" + strings.Join(strings.Fields(query), "+")},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	reqURL := c.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("arXiv", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		abstract := CollapseWhitespace(entry.Summary)
		if len(abstract) < c.cfg.MinAbstractLen {
			continue
		}

		p := domain.Paper{
			ID:       "arxiv_" + arxivID,
			Title:    CollapseWhitespace(entry.Title),
			Abstract: abstract,
			URL:      entry.ID,
			Source:   domain.SourceArxiv,
		}

		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}
		for _, cat := range entry.Categories {
			if cat.Term != "" {
				p.Categories = append(p.Categories, cat.Term)
			}
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Year = t.Year()
		}

		papers = append(papers, p)
		if len(papers) >= maxResults {
			break
		}
	}
	return papers, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
