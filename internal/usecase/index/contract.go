package index

import (
	"context"

	"github.com/querie/querie/internal/domain"
)

// Repository is the vector store contract for indexed papers.
type Repository interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, papers []domain.Paper, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.Paper, error)
}

// Fetcher gathers candidate papers to ingest.
type Fetcher interface {
	FetchAll(ctx context.Context, query string, maxPerSource int) []domain.Paper
}

// Embedder covers both the per-question and the batched document paths.
type Embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}
