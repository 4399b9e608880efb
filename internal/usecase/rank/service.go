// Package rank orders candidate papers by embedding cosine similarity to
// the question and keeps the top k. Candidates are embedded in fixed-size
// batches; a candidate whose embedding fails is dropped, never guessed.
package rank

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
)

// Service ranks papers against a query embedding.
type Service struct {
	embedder       domain.BatchEmbedder
	batchSize      int
	abstractPrefix int
	logger         *zap.Logger
}

// New creates a ranking service. batchSize bounds one embedding request;
// abstractPrefix caps how much of each abstract feeds the embedding.
func New(embedder domain.BatchEmbedder, batchSize, abstractPrefix int, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Service{
		embedder:       embedder,
		batchSize:      batchSize,
		abstractPrefix: abstractPrefix,
		logger:         logger,
	}
}

// Rank returns the top k papers by cosine similarity to queryVector,
// highest first. Equal scores keep fetch order. The returned papers carry
// their scores.
func (s *Service) Rank(ctx context.Context, queryVector []float32, papers []domain.Paper, k int) ([]domain.Paper, error) {
	if k <= 0 || len(papers) == 0 {
		return nil, nil
	}

	h := make(topKHeap, 0, k)
	heap.Init(&h)

	for start := 0; start < len(papers); start += s.batchSize {
		end := start + s.batchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := papers[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.EmbeddingText(s.abstractPrefix)
		}

		results, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed candidate batch: %w", err)
		}

		for i, r := range results {
			idx := start + i
			if len(r.Embedding) == 0 {
				s.logger.Warn("candidate embedding empty, dropping paper",
					zap.String("paper_id", batch[i].ID))
				continue
			}

			score, err := CosineSimilarity(queryVector, r.Embedding)
			if err != nil {
				s.logger.Warn("candidate not scorable, dropping paper",
					zap.String("paper_id", batch[i].ID),
					zap.Error(err))
				continue
			}

			if h.Len() < k {
				heap.Push(&h, scored{idx: idx, score: score})
				continue
			}
			// Equal scores never evict: the earlier-fetched candidate stays.
			if score > h[0].score {
				h[0] = scored{idx: idx, score: score}
				heap.Fix(&h, 0)
			}
		}
	}

	kept := make([]scored, h.Len())
	copy(kept, h)
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].idx < kept[j].idx
	})

	ranked := make([]domain.Paper, len(kept))
	for i, sc := range kept {
		p := papers[sc.idx]
		p.Score = sc.score
		ranked[i] = p
	}
	return ranked, nil
}
