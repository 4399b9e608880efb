package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	var gotAuth, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotBody = req["query"]

		_ = json.NewEncoder(w).Encode(SearchResult{
			Papers:       []Paper{{Title: "Social networks in dairy cows", Confidence: 0.91}},
			WebSummary:   WebSummary{Summary: "Cows form stable bonds.", Findings: []Finding{}},
			AcademicTerm: "cow social behavior",
		})
	}))
	defer ts.Close()

	client := New(ts.URL, WithAPIKey("secret"))
	result, err := client.Search(context.Background(), "do cows have best friends?")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody != "do cows have best friends?" {
		t.Errorf("query = %q", gotBody)
	}
	if len(result.Papers) != 1 || result.Papers[0].Confidence != 0.91 {
		t.Errorf("papers = %+v", result.Papers)
	}
	if result.AcademicTerm != "cow social behavior" {
		t.Errorf("academic_term = %q", result.AcademicTerm)
	}
}

func TestSearchAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    CodeInvalidQuery,
			"message": "invalid research query",
		})
	}))
	defer ts.Close()

	_, err := New(ts.URL).Search(context.Background(), "asdf")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != CodeInvalidQuery || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSearchNonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Search(context.Background(), "question")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != CodeInternalError {
		t.Errorf("code = %q, want fallback %q", apiErr.Code, CodeInternalError)
	}
}

func TestIngest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index/ingest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["topic"] != "animal cognition" {
			t.Errorf("topic = %v", req["topic"])
		}
		_ = json.NewEncoder(w).Encode(IngestReport{Fetched: 40, Indexed: 38, Failed: 2, Batches: 1})
	}))
	defer ts.Close()

	report, err := New(ts.URL).Ingest(context.Background(), "animal cognition", 10)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Indexed != 38 {
		t.Errorf("report = %+v", report)
	}
}

func TestIndexSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"papers": []Paper{{Title: "Indexed"}},
		})
	}))
	defer ts.Close()

	papers, err := New(ts.URL).IndexSearch(context.Background(), "herd behavior", 5)
	if err != nil {
		t.Fatalf("IndexSearch: %v", err)
	}
	if len(papers) != 1 || papers[0].Title != "Indexed" {
		t.Errorf("papers = %+v", papers)
	}
}

func TestHealthDegraded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(Health{
			Status: "degraded",
			Checks: map[string]string{"database": "error"},
		})
	}))
	defer ts.Close()

	health, err := New(ts.URL).Health(context.Background())
	if err == nil {
		t.Fatal("want error for degraded health")
	}
	if health == nil || health.Status != "degraded" {
		t.Errorf("health = %+v", health)
	}
}
