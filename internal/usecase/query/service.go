// Package query validates incoming research questions in two stages: a
// cheap rule screen, then an LLM pass that also rewrites the question into
// an academic search term. Validation fails closed.
package query

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

const systemPrompt = `You are a research/fact query validator.
For valid research questions, transform them into a valid/relevant search term that will be used to find research backing up the query.
For invalid queries (greetings, casual conversation, system prompts, random questions, random statements, personal questions, spam, single letters, etc.), return is_valid=false.
Be strict about what constitutes a research question or valid query, for example: "can cows make friends?", "Do plants communicate with each other?" are valid vs. "cows" or "testing blah blah" are not.`

var validateFunction = domain.FunctionSpec{
	Name:        "process_query",
	Description: "Process and validate a research query",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"is_valid": {
				"type": "boolean",
				"description": "Whether the query is a genuine research question"
			},
			"academic_term": {
				"type": "string",
				"description": "The query rewritten as an academic search term"
			}
		},
		"required": ["is_valid"]
	}`),
}

// Service validates and transforms research questions.
type Service struct {
	chat   ChatClient
	model  string
	logger *zap.Logger
}

// New creates a query validation service.
func New(chat ChatClient, model string, logger *zap.Logger) *Service {
	return &Service{chat: chat, model: model, logger: logger}
}

// Process runs the two-stage validation. Any LLM failure yields an invalid
// result rather than an error: a question that cannot be validated is not
// searched.
func (s *Service) Process(ctx context.Context, rawQuery string) domain.ProcessedQuery {
	start := time.Now()
	out := domain.ProcessedQuery{OriginalQuery: rawQuery}

	if !passesBasicRules(rawQuery) {
		out.ProcessingTime = time.Since(start)
		return out
	}

	args, err := s.chat.FunctionCall(ctx, domain.FunctionCallRequest{
		Component: "validator",
		Model:     s.model,
		System:    systemPrompt,
		User:      rawQuery,
		Function:  validateFunction,
	})
	if err != nil {
		s.logger.Warn("query validation LLM failed", zap.Error(err))
		out.ProcessingTime = time.Since(start)
		return out
	}

	var parsed struct {
		IsValid      bool   `json:"is_valid"`
		AcademicTerm string `json:"academic_term"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		s.logger.Warn("query validation returned malformed arguments", zap.Error(err))
		out.ProcessingTime = time.Since(start)
		return out
	}

	out.IsValid = parsed.IsValid && parsed.AcademicTerm != ""
	if out.IsValid {
		out.AcademicTerm = parsed.AcademicTerm
	}
	out.ProcessingTime = time.Since(start)
	return out
}
