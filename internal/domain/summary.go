package domain

// WebResult is one curated web search hit passed to the summarizer as
// grounding evidence. Domain and URL-pattern filtering happens in the search
// client, before a WebResult is ever constructed.
type WebResult struct {
	Title   string
	Link    string
	Snippet string
	Domain  string
	// Source is the publisher name as reported by the search provider.
	Source string
	// Date is the publication date string as reported by the provider,
	// passed through verbatim.
	Date string
}

// Finding is one claim from the research summary, attributed to a source.
type Finding struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	SourceURL  string `json:"source_url"`
	SourceName string `json:"source_name"`
	SourceDate string `json:"source_date"`
}

// ResearchSummary is the web-evidence branch's output. Produced once per
// request; Error is set instead of failing the request when the summary
// could not be generated.
type ResearchSummary struct {
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
	Error    string    `json:"error,omitempty"`
}
