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

// OpenAlexConnector queries the OpenAlex works API.
type OpenAlexConnector struct {
	client *http.Client
	pacer  *Pacer
	cfg    config.SourceConfig
}

// NewOpenAlex creates an OpenAlex connector.
func NewOpenAlex(cfg config.SourceConfig, pacer *Pacer) *OpenAlexConnector {
	return &OpenAlexConnector{client: &http.Client{}, pacer: pacer, cfg: cfg}
}

// Source returns the provider id.
func (c *OpenAlexConnector) Source() domain.Source { return domain.SourceOpenAlex }

// Fetch queries OpenAlex and returns normalized papers.
func (c *OpenAlexConnector) Fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	maxResults = capResults(maxResults, c.cfg.MaxResults)

	if err := c.pacer.Wait(ctx, domain.SourceOpenAlex, pace(c.cfg)); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(c.cfg))
	defer cancel()

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(maxResults)},
		"select":   {"id,title,abstract_inverted_index,authorships,publication_year,primary_location,concepts,doi"},
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
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("OpenAlex", resp.StatusCode)
	}

	var body openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(body.Results))
	for _, work := range body.Results {
		abstract := CleanAbstract(reconstructAbstract(work.AbstractInvertedIndex))
		if len(abstract) < c.cfg.MinAbstractLen {
			continue
		}

		id := shortOpenAlexID(work.ID)
		if id == "" {
			continue
		}

		paperURL := work.DOI
		if paperURL == "" {
			if work.PrimaryLocation != nil {
				paperURL = work.PrimaryLocation.LandingPageURL
			}
			if paperURL == "" {
				paperURL = work.ID
			}
		}

		p := domain.Paper{
			ID:       "openalex_" + id,
			Title:    CollapseWhitespace(work.Title),
			Abstract: abstract,
			URL:      paperURL,
			Source:   domain.SourceOpenAlex,
			Year:     work.PublicationYear,
		}

		for _, as := range work.Authorships {
			if as.Author.DisplayName != "" {
				p.Authors = append(p.Authors, as.Author.DisplayName)
			}
		}
		for _, concept := range work.Concepts {
			if concept.DisplayName != "" {
				p.Categories = append(p.Categories, concept.DisplayName)
			}
			if len(p.Categories) >= 5 {
				break
			}
		}

		papers = append(papers, p)
		if len(papers) >= maxResults {
			break
		}
	}
	return papers, nil
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string              `json:"id"`
	Title                 string              `json:"title"`
	AbstractInvertedIndex map[string][]int    `json:"abstract_inverted_index"`
	Authorships           []openAlexAuthorRef `json:"authorships"`
	PublicationYear       int                 `json:"publication_year"`
	PrimaryLocation       *openAlexLocation   `json:"primary_location"`
	Concepts              []openAlexConcept   `json:"concepts"`
	DOI                   string              `json:"doi"`
}

type openAlexAuthorRef struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
}

type openAlexConcept struct {
	DisplayName string `json:"display_name"`
}

// reconstructAbstract rebuilds plain text from OpenAlex's inverted
// index, which maps each word to the positions it occupies.
func reconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}
	maxPos := -1
	for _, positions := range inverted {
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 {
		return ""
	}
	words := make([]string, maxPos+1)
	for word, positions := range inverted {
		for _, pos := range positions {
			if pos >= 0 && pos < len(words) {
				words[pos] = word
			}
		}
	}
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// shortOpenAlexID strips the URL prefix from an OpenAlex work id
// ("https://openalex.org/W2741809807" → "W2741809807").
func shortOpenAlexID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
