// Package summary turns web search evidence into a grounded research
// summary with per-finding source attribution. No evidence means no LLM
// call: the zero-evidence response is fixed and free.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

// ChatClient is the consumer interface for summary generation.
type ChatClient interface {
	FunctionCall(ctx context.Context, req domain.FunctionCallRequest) (json.RawMessage, error)
}

const systemPrompt = `You are a factual research assistant that provides accurate, well-sourced information.
Analyze the provided search results and generate a structured response that:
1. Summarizes the key findings
2. Lists specific claims with their sources

Focus on verifiable facts from reputable sources. Every finding must cite the source URL it came from.`

var summaryFunction = domain.FunctionSpec{
	Name:        "research_summary",
	Description: "Produce a research summary with attributed findings",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {
				"type": "string",
				"description": "Synthesis of the key findings across sources"
			},
			"findings": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"title": {"type": "string"},
						"text": {"type": "string", "description": "One specific, verifiable claim"},
						"source_url": {"type": "string"},
						"source_name": {"type": "string"},
						"source_date": {"type": "string"}
					},
					"required": ["text", "source_url"]
				}
			}
		},
		"required": ["summary", "findings"]
	}`),
}

// Service generates research summaries from web evidence.
type Service struct {
	chat   ChatClient
	model  string
	logger *zap.Logger
}

// New creates a summary service.
func New(chat ChatClient, model string, logger *zap.Logger) *Service {
	return &Service{chat: chat, model: model, logger: logger}
}

// Generate produces a summary of the evidence for the question. With no
// evidence it returns the fixed empty-result contract without touching the
// provider. Provider failures degrade to an error summary, never an error
// return: the paper results must still reach the caller.
func (s *Service) Generate(ctx context.Context, question string, evidence []domain.WebResult) domain.ResearchSummary {
	if len(evidence) == 0 {
		return domain.ResearchSummary{
			Summary:  "No search results available.",
			Findings: []domain.Finding{},
			Error:    "No search results to analyze",
		}
	}

	args, err := s.chat.FunctionCall(ctx, domain.FunctionCallRequest{
		Component:   "summarizer",
		Model:       s.model,
		System:      systemPrompt,
		User:        buildUserPrompt(question, evidence),
		Temperature: 0.2,
		Function:    summaryFunction,
	})
	if err != nil {
		s.logger.Warn("summary generation failed", zap.Error(err))
		return domain.ResearchSummary{
			Summary:  "Error generating summary",
			Findings: []domain.Finding{},
			Error:    err.Error(),
		}
	}

	var parsed struct {
		Summary  string `json:"summary"`
		Findings []struct {
			Title      string `json:"title"`
			Text       string `json:"text"`
			SourceURL  string `json:"source_url"`
			SourceName string `json:"source_name"`
			SourceDate string `json:"source_date"`
		} `json:"findings"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		s.logger.Warn("summary arguments malformed", zap.Error(err))
		return domain.ResearchSummary{
			Summary:  "Error generating summary",
			Findings: []domain.Finding{},
			Error:    "malformed summary response",
		}
	}

	findings := make([]domain.Finding, 0, len(parsed.Findings))
	for _, f := range parsed.Findings {
		if f.Text == "" {
			continue
		}
		findings = append(findings, domain.Finding{
			Title:      f.Title,
			Text:       f.Text,
			SourceURL:  f.SourceURL,
			SourceName: f.SourceName,
			SourceDate: f.SourceDate,
		})
	}

	return domain.ResearchSummary{Summary: parsed.Summary, Findings: findings}
}

// buildUserPrompt renders the question and numbered evidence blocks.
func buildUserPrompt(question string, evidence []domain.WebResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research Question: %s\n\nAvailable Sources:\n", question)
	for i, r := range evidence {
		fmt.Fprintf(&b, "\nSource %d:\nTitle: %s\nURL: %s\nDomain: %s\nContent: %s\n",
			i+1, r.Title, r.Link, r.Domain, r.Snippet)
		if r.Date != "" {
			fmt.Fprintf(&b, "Date: %s\n", r.Date)
		}
	}
	b.WriteString("\nGenerate a research summary with key findings and their sources.")
	return b.String()
}
