// Package research orchestrates one question end to end: validation, then
// the academic retrieval/ranking pipeline and the web-grounded summary in
// parallel, joined into a single response.
package research

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

// Service answers research questions.
type Service struct {
	validator    Validator
	fetcher      Fetcher
	embedder     Embedder
	ranker       Ranker
	webSearcher  WebSearcher
	summarizer   Summarizer
	maxPerSource int
	topK         int
	logger       *zap.Logger
}

// Config bundles the orchestrator's collaborators and tuning.
type Config struct {
	Validator    Validator
	Fetcher      Fetcher
	Embedder     Embedder
	Ranker       Ranker
	WebSearcher  WebSearcher
	Summarizer   Summarizer
	MaxPerSource int
	TopK         int
	Logger       *zap.Logger
}

// New creates a research service.
func New(cfg Config) *Service {
	return &Service{
		validator:    cfg.Validator,
		fetcher:      cfg.Fetcher,
		embedder:     cfg.Embedder,
		ranker:       cfg.Ranker,
		webSearcher:  cfg.WebSearcher,
		summarizer:   cfg.Summarizer,
		maxPerSource: cfg.MaxPerSource,
		topK:         cfg.TopK,
		logger:       cfg.Logger,
	}
}

// Response is one answered research question.
type Response struct {
	Query      domain.ProcessedQuery
	Papers     []domain.Paper
	WebSummary domain.ResearchSummary
}

// Search answers a research question. Rejected questions return
// domain.ErrInvalidQuery. The two branches run concurrently: the academic
// branch searches by the rewritten academic term, the web branch by the
// user's original words. A failed web branch degrades to the empty-evidence
// summary; a failed academic branch fails the whole request, since papers
// are the product.
func (s *Service) Search(ctx context.Context, rawQuery string) (*Response, error) {
	processed := s.validator.Process(ctx, rawQuery)
	if !processed.IsValid {
		return nil, fmt.Errorf("%w: not a research question", domain.ErrInvalidQuery)
	}

	var (
		wg         sync.WaitGroup
		papers     []domain.Paper
		paperErr   error
		webSummary domain.ResearchSummary
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		papers, paperErr = s.academicSearch(ctx, processed.AcademicTerm)
	}()
	go func() {
		defer wg.Done()
		webSummary = s.webSearchAndSummarize(ctx, rawQuery)
	}()
	wg.Wait()

	if paperErr != nil {
		return nil, paperErr
	}

	return &Response{
		Query:      processed,
		Papers:     papers,
		WebSummary: webSummary,
	}, nil
}

func (s *Service) academicSearch(ctx context.Context, term string) ([]domain.Paper, error) {
	start := time.Now()

	candidates := s.fetcher.FetchAll(ctx, term, s.maxPerSource)
	if len(candidates) == 0 {
		s.logger.Warn("no candidates from any source", zap.String("term", term))
		return nil, nil
	}

	queryEmb, err := s.embedder.Embed(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ranked, err := s.ranker.Rank(ctx, queryEmb.Embedding, candidates, s.topK)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}

	s.logger.Info("academic search complete",
		zap.String("term", term),
		zap.Int("candidates", len(candidates)),
		zap.Int("ranked", len(ranked)),
		zap.Duration("elapsed", time.Since(start)))
	return ranked, nil
}

func (s *Service) webSearchAndSummarize(ctx context.Context, rawQuery string) domain.ResearchSummary {
	evidence, err := s.webSearcher.Search(ctx, rawQuery)
	if err != nil {
		s.logger.Warn("web search failed, summarizing without evidence", zap.Error(err))
		evidence = nil
	}
	return s.summarizer.Generate(ctx, rawQuery, evidence)
}
