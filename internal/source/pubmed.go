package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/config"
	"github.com/querie/querie/internal/domain"
)

// pubmedFetchChunk bounds how many PMIDs a single efetch call carries.
const pubmedFetchChunk = 50

// PubMedConnector queries NCBI E-utilities in two phases: esearch for
// PMIDs, then efetch for the article records.
type PubMedConnector struct {
	client *http.Client
	pacer  *Pacer
	cfg    config.SourceConfig
	log    *zap.Logger
}

// NewPubMed creates a PubMed connector.
func NewPubMed(cfg config.SourceConfig, pacer *Pacer, log *zap.Logger) *PubMedConnector {
	return &PubMedConnector{client: &http.Client{}, pacer: pacer, cfg: cfg, log: log}
}

// Source returns the provider id.
func (c *PubMedConnector) Source() domain.Source { return domain.SourcePubMed }

// Fetch queries PubMed and returns normalized papers. When the context
// deadline hits after at least one efetch chunk has landed, the papers
// gathered so far are returned without an error.
func (c *PubMedConnector) Fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}
	maxResults = capResults(maxResults, c.cfg.MaxResults)

	ctx, cancel := context.WithTimeout(ctx, timeout(c.cfg))
	defer cancel()

	ids, err := c.searchIDs(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	papers := make([]domain.Paper, 0, len(ids))
	for start := 0; start < len(ids); start += pubmedFetchChunk {
		end := start + pubmedFetchChunk
		if end > len(ids) {
			end = len(ids)
		}

		chunk, fetchErr := c.fetchRecords(ctx, ids[start:end])
		if fetchErr != nil {
			if len(papers) > 0 && errors.Is(fetchErr, context.DeadlineExceeded) {
				c.log.Warn("pubmed fetch truncated by deadline",
					zap.Int("papers", len(papers)),
					zap.Int("ids_remaining", len(ids)-start))
				return papers, nil
			}
			return nil, fetchErr
		}
		papers = append(papers, chunk...)
		if len(papers) >= maxResults {
			papers = papers[:maxResults]
			break
		}
	}
	return papers, nil
}

func (c *PubMedConnector) searchIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	if err := c.pacer.Wait(ctx, domain.SourcePubMed, pace(c.cfg)); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	reqURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/esearch.fcgi?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PubMed esearch request: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("PubMed", resp.StatusCode)
	}

	var body pubmedSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing PubMed esearch response: %w", err)
	}
	return body.ESearchResult.IDList, nil
}

func (c *PubMedConnector) fetchRecords(ctx context.Context, ids []string) ([]domain.Paper, error) {
	if err := c.pacer.Wait(ctx, domain.SourcePubMed, pace(c.cfg)); err != nil {
		return nil, fmt.Errorf("pacing wait: %w", err)
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	reqURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/efetch.fcgi?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PubMed efetch request: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("PubMed", resp.StatusCode)
	}

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PubMed efetch response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(set.Articles))
	for _, article := range set.Articles {
		cite := article.MedlineCitation
		pmid := strings.TrimSpace(cite.PMID)
		if pmid == "" {
			continue
		}

		abstract := joinAbstractSections(cite.Article.Abstract.Texts)
		if len(abstract) < c.cfg.MinAbstractLen {
			continue
		}

		p := domain.Paper{
			ID:       "pubmed_" + pmid,
			Title:    CollapseWhitespace(cite.Article.Title),
			Abstract: abstract,
			URL:      "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
			Source:   domain.SourcePubMed,
		}

		for _, a := range cite.Article.AuthorList.Authors {
			name := strings.TrimSpace(a.ForeName + " " + a.LastName)
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		for _, mesh := range cite.MeshHeadingList.Headings {
			if mesh.Descriptor != "" {
				p.Categories = append(p.Categories, mesh.Descriptor)
			}
			if len(p.Categories) >= 5 {
				break
			}
		}
		if y, convErr := strconv.Atoi(cite.Article.Journal.JournalIssue.PubDate.Year); convErr == nil {
			p.Year = y
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// joinAbstractSections merges a structured abstract into one block,
// keeping the section labels ("BACKGROUND: ...", "METHODS: ...").
func joinAbstractSections(sections []pubmedAbstractText) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		text := CollapseWhitespace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// PubMed efetch XML structures, trimmed to the fields in use.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation pubmedCitation `xml:"MedlineCitation"`
}

type pubmedCitation struct {
	PMID    string `xml:"PMID"`
	Article struct {
		Title    string `xml:"ArticleTitle"`
		Abstract struct {
			Texts []pubmedAbstractText `xml:"AbstractText"`
		} `xml:"Abstract"`
		AuthorList struct {
			Authors []pubmedAuthor `xml:"Author"`
		} `xml:"AuthorList"`
		Journal struct {
			JournalIssue struct {
				PubDate struct {
					Year string `xml:"Year"`
				} `xml:"PubDate"`
			} `xml:"JournalIssue"`
		} `xml:"Journal"`
	} `xml:"Article"`
	MeshHeadingList struct {
		Headings []pubmedMeshHeading `xml:"MeshHeading"`
	} `xml:"MeshHeadingList"`
}

type pubmedAbstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedMeshHeading struct {
	Descriptor string `xml:"DescriptorName"`
}
