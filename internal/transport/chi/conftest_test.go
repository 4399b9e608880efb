package chi

import (
	"context"
	"time"

	"github.com/querie/querie/internal/domain"
)

type stubValidator struct {
	result domain.ProcessedQuery
}

func (s *stubValidator) Process(_ context.Context, rawQuery string) domain.ProcessedQuery {
	out := s.result
	out.OriginalQuery = rawQuery
	return out
}

type stubFetcher struct {
	papers []domain.Paper
}

func (s *stubFetcher) FetchAll(context.Context, string, int) []domain.Paper {
	return s.papers
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vector}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.EmbeddingResult, len(texts))
	for i := range texts {
		out[i] = domain.EmbeddingResult{Embedding: s.vector}
	}
	return out, nil
}

type stubRanker struct {
	ranked []domain.Paper
	err    error
}

func (s *stubRanker) Rank(_ context.Context, _ []float32, _ []domain.Paper, _ int) ([]domain.Paper, error) {
	return s.ranked, s.err
}

type stubWebSearcher struct {
	results []domain.WebResult
	err     error
}

func (s *stubWebSearcher) Search(context.Context, string) ([]domain.WebResult, error) {
	return s.results, s.err
}

type stubSummarizer struct {
	summary domain.ResearchSummary
}

func (s *stubSummarizer) Generate(context.Context, string, []domain.WebResult) domain.ResearchSummary {
	return s.summary
}

type stubRepo struct {
	papers    []domain.Paper
	searchErr error
}

func (s *stubRepo) EnsureIndex(context.Context) error { return nil }

func (s *stubRepo) Upsert(context.Context, []domain.Paper, [][]float32) error { return nil }

func (s *stubRepo) Search(context.Context, []float32, int) ([]domain.Paper, error) {
	return s.papers, s.searchErr
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

type stubCounter struct {
	count     int64
	incrErr   error
	expireNX  bool
	expireTTL time.Duration
}

func (s *stubCounter) Incr(context.Context, string) (int64, error) {
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	s.count++
	return s.count, nil
}

func (s *stubCounter) Expire(_ context.Context, _ string, ttl time.Duration, nx bool) error {
	s.expireTTL = ttl
	s.expireNX = nx
	return nil
}
