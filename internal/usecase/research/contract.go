package research

import (
	"context"

	"github.com/querie/querie/internal/domain"
)

// Validator screens and rewrites incoming questions.
type Validator interface {
	Process(ctx context.Context, rawQuery string) domain.ProcessedQuery
}

// Fetcher runs concurrent multi-source paper retrieval.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, maxPerSource int) []domain.Paper
}

// Embedder vectorizes the question for ranking.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Ranker orders candidates by similarity and keeps the top k.
type Ranker interface {
	Rank(ctx context.Context, queryVector []float32, papers []domain.Paper, k int) ([]domain.Paper, error)
}

// WebSearcher returns grounding evidence for the question.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]domain.WebResult, error)
}

// Summarizer turns web evidence into an attributed summary.
type Summarizer interface {
	Generate(ctx context.Context, question string, evidence []domain.WebResult) domain.ResearchSummary
}
