package summary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

type mockChat struct {
	args  json.RawMessage
	err   error
	calls int
	last  domain.FunctionCallRequest
}

func (m *mockChat) FunctionCall(_ context.Context, req domain.FunctionCallRequest) (json.RawMessage, error) {
	m.calls++
	m.last = req
	return m.args, m.err
}

func someEvidence() []domain.WebResult {
	return []domain.WebResult{
		{Title: "Cow Cognition", Link: "https://nature.com/a1", Domain: "nature.com", Snippet: "Cows recognize faces.", Date: "Jan 2023"},
		{Title: "Herd Behaviour", Link: "https://science.org/b2", Domain: "science.org", Snippet: "Herds show bonds."},
	}
}

func TestGenerate_NoEvidenceContract(t *testing.T) {
	chat := &mockChat{}
	svc := New(chat, "gpt-4o-mini", zap.NewNop())

	got := svc.Generate(context.Background(), "can cows make friends?", nil)

	if got.Summary != "No search results available." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.Findings == nil || len(got.Findings) != 0 {
		t.Errorf("Findings = %v, want empty non-nil slice", got.Findings)
	}
	if got.Error != "No search results to analyze" {
		t.Errorf("Error = %q", got.Error)
	}
	if chat.calls != 0 {
		t.Errorf("LLM called %d times with no evidence", chat.calls)
	}
}

func TestGenerate_Success(t *testing.T) {
	chat := &mockChat{args: json.RawMessage(`{
		"summary": "Cows form lasting social bonds.",
		"findings": [
			{"title": "Recognition", "text": "Cows recognize herd members.", "source_url": "https://nature.com/a1", "source_name": "Nature", "source_date": "Jan 2023"},
			{"text": "", "source_url": "https://dropme.example"},
			{"text": "Bond stress response measured.", "source_url": "https://science.org/b2"}
		]
	}`)}
	svc := New(chat, "gpt-4o-mini", zap.NewNop())

	got := svc.Generate(context.Background(), "can cows make friends?", someEvidence())

	if got.Error != "" {
		t.Fatalf("Error = %q", got.Error)
	}
	if got.Summary != "Cows form lasting social bonds." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if len(got.Findings) != 2 {
		t.Fatalf("got %d findings, want 2 (empty text dropped)", len(got.Findings))
	}
	if got.Findings[0].SourceURL != "https://nature.com/a1" || got.Findings[0].SourceName != "Nature" {
		t.Errorf("finding = %+v", got.Findings[0])
	}

	if chat.last.Component != "summarizer" {
		t.Errorf("Component = %q", chat.last.Component)
	}
	for _, want := range []string{
		"Research Question: can cows make friends?",
		"Source 1:", "Source 2:",
		"https://nature.com/a1", "Date: Jan 2023",
	} {
		if !strings.Contains(chat.last.User, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestGenerate_ProviderFailureDegrades(t *testing.T) {
	chat := &mockChat{err: errors.New("provider down")}
	svc := New(chat, "gpt-4o-mini", zap.NewNop())

	got := svc.Generate(context.Background(), "can cows make friends?", someEvidence())

	if got.Summary != "Error generating summary" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if len(got.Findings) != 0 {
		t.Errorf("Findings = %v", got.Findings)
	}
	if got.Error == "" {
		t.Error("Error not set")
	}
}

func TestGenerate_MalformedArguments(t *testing.T) {
	chat := &mockChat{args: json.RawMessage(`[not an object]`)}
	svc := New(chat, "gpt-4o-mini", zap.NewNop())

	got := svc.Generate(context.Background(), "can cows make friends?", someEvidence())
	if got.Error != "malformed summary response" {
		t.Errorf("Error = %q", got.Error)
	}
}
