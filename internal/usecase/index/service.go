// Package index maintains the pre-built paper index: batch ingestion of
// fetched papers and direct nearest-neighbour search against the stored
// vectors, skipping live provider fan-out.
package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

// Service manages the persistent paper index.
type Service struct {
	repo           Repository
	fetcher        Fetcher
	embedder       Embedder
	batchSize      int
	abstractPrefix int
	retries        int
	backoff        time.Duration
	logger         *zap.Logger
}

// Config bundles the index service dependencies and tuning.
type Config struct {
	Repo           Repository
	Fetcher        Fetcher
	Embedder       Embedder
	BatchSize      int
	AbstractPrefix int
	// Retries is the number of upsert attempts per batch.
	Retries int
	// Backoff is the initial retry delay, doubled per attempt.
	Backoff time.Duration
	Logger  *zap.Logger
}

// New creates an index service.
func New(cfg Config) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Service{
		repo:           cfg.Repo,
		fetcher:        cfg.Fetcher,
		embedder:       cfg.Embedder,
		batchSize:      batchSize,
		abstractPrefix: cfg.AbstractPrefix,
		retries:        retries,
		backoff:        backoff,
		logger:         cfg.Logger,
	}
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Fetched  int           `json:"fetched"`
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"-"`
}

// Ingest fetches papers for a topic, embeds them in batches, and upserts
// them into the index. Each batch retries with exponential backoff; a batch
// that exhausts its retries is counted and skipped, not fatal.
func (s *Service) Ingest(ctx context.Context, topic string, maxPerSource int) (*IngestReport, error) {
	start := time.Now()

	if err := s.repo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	papers := s.fetcher.FetchAll(ctx, topic, maxPerSource)
	report := &IngestReport{Fetched: len(papers)}

	for batchStart := 0; batchStart < len(papers); batchStart += s.batchSize {
		end := batchStart + s.batchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := papers[batchStart:end]
		report.Batches++

		if err := s.ingestBatch(ctx, batch); err != nil {
			s.logger.Error("batch ingestion failed",
				zap.Int("batch_start", batchStart),
				zap.Int("batch_len", len(batch)),
				zap.Error(err))
			report.Failed += len(batch)
			continue
		}
		report.Indexed += len(batch)
	}

	report.Duration = time.Since(start)
	s.logger.Info("ingestion complete",
		zap.String("topic", topic),
		zap.Int("fetched", report.Fetched),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Duration))
	return report, nil
}

func (s *Service) ingestBatch(ctx context.Context, batch []domain.Paper) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.EmbeddingText(s.abstractPrefix)
	}

	results, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	vectors := make([][]float32, len(results))
	for i, r := range results {
		vectors[i] = r.Embedding
	}

	backoff := s.backoff
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		lastErr = s.repo.Upsert(ctx, batch, vectors)
		if lastErr == nil {
			return nil
		}
		if attempt == s.retries {
			break
		}
		s.logger.Warn("upsert failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("upsert after %d attempts: %w", s.retries, lastErr)
}

// Search answers a question from the pre-built index alone.
func (s *Service) Search(ctx context.Context, question string, k int) ([]domain.Paper, error) {
	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return s.repo.Search(ctx, emb.Embedding, k)
}

// Ready ensures the index exists. Called once at startup.
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.EnsureIndex(ctx)
}
