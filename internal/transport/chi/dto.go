package chi

import (
	"github.com/querie/querie/internal/domain"
	"github.com/querie/querie/internal/usecase/health"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
}

// ResearchPaper is one ranked paper in a search response.
type ResearchPaper struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	URL        string   `json:"url"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Categories []string `json:"categories"`
	Authors    []string `json:"authors,omitempty"`
	Year       int      `json:"year,omitempty"`
}

// WebSummary mirrors domain.ResearchSummary on the wire.
type WebSummary struct {
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
	Error    string    `json:"error,omitempty"`
}

// Finding is one attributed claim.
type Finding struct {
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`
	SourceURL  string `json:"source_url"`
	SourceName string `json:"source_name,omitempty"`
	SourceDate string `json:"source_date,omitempty"`
}

// SearchResponse is the body of a successful POST /search. IsValid is
// always true here: rejected queries answer with an ErrorResponse instead.
type SearchResponse struct {
	IsValid      bool            `json:"is_valid"`
	Papers       []ResearchPaper `json:"papers"`
	WebSummary   WebSummary      `json:"web_summary"`
	AcademicTerm string          `json:"academic_term"`
}

// IngestRequest is the body of POST /index/ingest.
type IngestRequest struct {
	Topic        string `json:"topic"`
	MaxPerSource int    `json:"max_per_source,omitempty"`
}

// IndexSearchRequest is the body of POST /index/search.
type IndexSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// IndexSearchResponse is the body of a successful POST /index/search.
type IndexSearchResponse struct {
	Papers []ResearchPaper `json:"papers"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the API.
const (
	codeBadRequest        = "bad_request"
	codeInvalidQuery      = "invalid_query"
	codeRateLimited       = "rate_limited"
	codeEmbeddingProvider = "embedding_provider_error"
	codeLLMProvider       = "llm_provider_error"
	codeIndexNotFound     = "index_not_found"
	codeNotFound          = "not_found"
	codeInternalError     = "internal_error"
)

// paperToDTO converts a ranked paper, truncating the abstract to a preview.
func paperToDTO(p domain.Paper, previewLen int) ResearchPaper {
	summary := p.Abstract
	if previewLen > 0 && len(summary) > previewLen {
		summary = summary[:previewLen] + "..."
	}
	return ResearchPaper{
		Title:      p.Title,
		Summary:    summary,
		URL:        p.URL,
		Confidence: p.Score,
		Source:     string(p.Source),
		Categories: p.Categories,
		Authors:    p.Authors,
		Year:       p.Year,
	}
}

func papersToDTO(papers []domain.Paper, previewLen int) []ResearchPaper {
	out := make([]ResearchPaper, len(papers))
	for i, p := range papers {
		out[i] = paperToDTO(p, previewLen)
	}
	return out
}

func summaryToDTO(s domain.ResearchSummary) WebSummary {
	findings := make([]Finding, len(s.Findings))
	for i, f := range s.Findings {
		findings[i] = Finding{
			Title:      f.Title,
			Text:       f.Text,
			SourceURL:  f.SourceURL,
			SourceName: f.SourceName,
			SourceDate: f.SourceDate,
		}
	}
	return WebSummary{Summary: s.Summary, Findings: findings, Error: s.Error}
}

func healthToDTO(r health.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for name, result := range r.Checks {
		checks[name] = string(result)
	}
	return HealthResponse{Status: string(r.Status), Checks: checks}
}
