package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/config"
	"github.com/querie/querie/internal/domain"
)

func testSourceConfig(baseURL string) config.SourceConfig {
	return config.SourceConfig{
		Enabled:        true,
		BaseURL:        baseURL,
		PaceMS:         1,
		TimeoutSec:     5,
		MaxResults:     100,
		MinAbstractLen: 20,
	}
}

const arxivAtomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Social  Networks
      in Dairy Cattle</title>
    <summary>We study affiliative relationships in dairy herds and show stable pair bonds persisting across lactations.</summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>A. Farmer</name></author>
    <author><name>B. Vet</name></author>
    <category term="q-bio.PE"/>
    <category term="cs.SI"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.09999v1</id>
    <title>Too Short</title>
    <summary>Tiny abstract.</summary>
    <published>2023-01-20T12:00:00Z</published>
  </entry>
</feed>`

func TestArxivFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(arxivAtomFixture))
	}))
	defer srv.Close()

	conn := NewArxiv(testSourceConfig(srv.URL), NewPacer())
	papers, err := conn.Fetch(context.Background(), "cow social networks", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotQuery != "all:cow+social+networks" {
		t.Errorf("search_query = %q", gotQuery)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1 (short abstract filtered)", len(papers))
	}

	p := papers[0]
	if p.ID != "arxiv_2301.07041" {
		t.Errorf("ID = %q, want version suffix stripped", p.ID)
	}
	if p.Source != domain.SourceArxiv {
		t.Errorf("Source = %q", p.Source)
	}
	if p.Title != "Social Networks in Dairy Cattle" {
		t.Errorf("Title = %q, want whitespace collapsed", p.Title)
	}
	if p.Year != 2023 {
		t.Errorf("Year = %d", p.Year)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "A. Farmer" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if len(p.Categories) != 2 || p.Categories[0] != "q-bio.PE" {
		t.Errorf("Categories = %v", p.Categories)
	}
}

func TestArxivFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	conn := NewArxiv(testSourceConfig(srv.URL), NewPacer())

	if _, err := conn.Fetch(context.Background(), "", 10); err == nil {
		t.Error("empty query: want error")
	}
	if _, err := conn.Fetch(context.Background(), "cows", 10); err == nil {
		t.Error("HTTP 503: want error")
	}
}

func TestOpenAlexFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mailto") != "ops@example.org" {
			t.Errorf("mailto = %q", r.URL.Query().Get("mailto"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [{
				"id": "https://openalex.org/W2741809807",
				"title": "Grazing Behaviour of Cattle",
				"abstract_inverted_index": {
					"Cattle": [0], "graze": [1], "in": [2, 5],
					"synchronized": [3], "bouts": [4], "pasture": [6],
					"systems": [7], "worldwide.": [8]
				},
				"authorships": [{"author": {"display_name": "C. Herd"}}],
				"publication_year": 2017,
				"primary_location": {"landing_page_url": "https://example.org/w1"},
				"concepts": [{"display_name": "Zoology"}],
				"doi": "https://doi.org/10.1000/grz"
			}]
		}`))
	}))
	defer srv.Close()

	cfg := testSourceConfig(srv.URL)
	cfg.Email = "ops@example.org"
	conn := NewOpenAlex(cfg, NewPacer())

	papers, err := conn.Fetch(context.Background(), "cattle grazing", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.ID != "openalex_W2741809807" {
		t.Errorf("ID = %q", p.ID)
	}
	want := "Cattle graze in synchronized bouts in pasture systems worldwide."
	if p.Abstract != want {
		t.Errorf("Abstract = %q, want %q", p.Abstract, want)
	}
	if p.URL != "https://doi.org/10.1000/grz" {
		t.Errorf("URL = %q, want DOI preferred", p.URL)
	}
	if p.Year != 2017 || p.Source != domain.SourceOpenAlex {
		t.Errorf("Year = %d, Source = %q", p.Year, p.Source)
	}
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name string
		in   map[string][]int
		want string
	}{
		{"nil index", nil, ""},
		{"single word", map[string][]int{"cows": {0}}, "cows"},
		{
			"repeated word",
			map[string][]int{"the": {0, 2}, "cow": {1}, "field": {3}},
			"the cow the field",
		},
		{
			"gap in positions",
			map[string][]int{"a": {0}, "b": {5}},
			"a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.in); got != tt.want {
				t.Errorf("reconstructAbstract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCrossrefFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message": {
				"items": [
					{
						"DOI": "10.1000/cow1",
						"title": ["Rumination and Rest in Dairy Cows"],
						"abstract": "<jats:p>Resting behaviour predicts rumination time in housed dairy cows.</jats:p>",
						"author": [{"given": "D.", "family": "Stockman"}],
						"subject": ["Animal Science"],
						"published": {"date-parts": [[2020, 4, 1]]}
					},
					{
						"DOI": "10.1000/noabs",
						"title": ["No Abstract Here"],
						"abstract": ""
					}
				]
			}
		}`))
	}))
	defer srv.Close()

	conn := NewCrossref(testSourceConfig(srv.URL), NewPacer())
	papers, err := conn.Fetch(context.Background(), "dairy cows", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1 (abstract-less entry skipped)", len(papers))
	}

	p := papers[0]
	if p.ID != "crossref_10.1000_cow1" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.URL != "https://doi.org/10.1000/cow1" {
		t.Errorf("URL = %q", p.URL)
	}
	if strings.Contains(p.Abstract, "<") {
		t.Errorf("Abstract kept markup: %q", p.Abstract)
	}
	if p.Year != 2020 {
		t.Errorf("Year = %d", p.Year)
	}
	if len(p.Authors) != 1 || p.Authors[0] != "D. Stockman" {
		t.Errorf("Authors = %v", p.Authors)
	}
}

func TestSemanticScholarFetch(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{
				"paperId": "649def34f8be52c8b66281af98ae884c09aef38b",
				"title": "Heat Stress in Cattle",
				"abstract": "Elevated ambient temperature reduces feed intake and milk production in lactating cattle.",
				"authors": [{"name": "E. Rancher"}],
				"year": 2019,
				"url": "https://www.semanticscholar.org/paper/abc",
				"fieldsOfStudy": ["Biology"]
			}]
		}`))
	}))
	defer srv.Close()

	cfg := testSourceConfig(srv.URL)
	cfg.APIKey = "s2-test-key"
	conn := NewSemanticScholar(cfg, NewPacer())

	papers, err := conn.Fetch(context.Background(), "heat stress cattle", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotKey != "s2-test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.ID != "semantic_649def34f8be52c8b66281af98ae884c09aef38b" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Year != 2019 || p.Source != domain.SourceSemanticScholar {
		t.Errorf("Year = %d, Source = %q", p.Year, p.Source)
	}
}

func TestPubMedFetchTwoPhase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "esearch"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"esearchresult": {"idlist": ["12345678"]}}`))
		case strings.Contains(r.URL.Path, "efetch"):
			if got := r.URL.Query().Get("id"); got != "12345678" {
				t.Errorf("efetch id = %q", got)
			}
			w.Header().Set("Content-Type", "text/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>12345678</PMID>
      <Article>
        <Journal><JournalIssue><PubDate><Year>2021</Year></PubDate></JournalIssue></Journal>
        <ArticleTitle>Bovine Social Hierarchies</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Dominance relationships structure herd behaviour.</AbstractText>
          <AbstractText Label="RESULTS">Stable hierarchies reduced agonistic interactions.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Dairy</LastName><ForeName>F.</ForeName></Author>
        </AuthorList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName>Cattle</DescriptorName></MeshHeading>
        <MeshHeading><DescriptorName>Social Dominance</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	conn := NewPubMed(testSourceConfig(srv.URL), NewPacer(), zap.NewNop())
	papers, err := conn.Fetch(context.Background(), "bovine hierarchy", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.ID != "pubmed_12345678" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.URL != "https://pubmed.ncbi.nlm.nih.gov/12345678/" {
		t.Errorf("URL = %q", p.URL)
	}
	wantAbs := "BACKGROUND: Dominance relationships structure herd behaviour. RESULTS: Stable hierarchies reduced agonistic interactions."
	if p.Abstract != wantAbs {
		t.Errorf("Abstract = %q, want %q", p.Abstract, wantAbs)
	}
	if len(p.Authors) != 1 || p.Authors[0] != "F. Dairy" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if len(p.Categories) != 2 || p.Categories[1] != "Social Dominance" {
		t.Errorf("Categories = %v", p.Categories)
	}
	if p.Year != 2021 {
		t.Errorf("Year = %d", p.Year)
	}
}

func TestPubMedFetchNoIDs(t *testing.T) {
	var efetchCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "efetch") {
			efetchCalled = true
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"esearchresult": {"idlist": []}}`))
	}))
	defer srv.Close()

	conn := NewPubMed(testSourceConfig(srv.URL), NewPacer(), zap.NewNop())
	papers, err := conn.Fetch(context.Background(), "nothing matches", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("got %d papers, want 0", len(papers))
	}
	if efetchCalled {
		t.Error("efetch called despite empty id list")
	}
}
