package sdk

// Paper is one ranked paper in a search response.
type Paper struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	URL        string   `json:"url"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Categories []string `json:"categories"`
	Authors    []string `json:"authors,omitempty"`
	Year       int      `json:"year,omitempty"`
}

// Finding is one attributed claim from the web summary.
type Finding struct {
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`
	SourceURL  string `json:"source_url"`
	SourceName string `json:"source_name,omitempty"`
	SourceDate string `json:"source_date,omitempty"`
}

// WebSummary is the web-evidence branch of a search response.
type WebSummary struct {
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings"`
	Error    string    `json:"error,omitempty"`
}

// SearchResult is the response of Client.Search.
type SearchResult struct {
	IsValid      bool       `json:"is_valid"`
	Papers       []Paper    `json:"papers"`
	WebSummary   WebSummary `json:"web_summary"`
	AcademicTerm string     `json:"academic_term"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Fetched int `json:"fetched"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
	Batches int `json:"batches"`
}

// Health is the response of Client.Health.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
