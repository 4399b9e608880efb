// Package paperindex persists papers as hashes with a vector field and
// serves nearest-neighbour lookups over the FT index built on them.
package paperindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/querie/querie/internal/db"
	"github.com/querie/querie/internal/domain"
)

var paperKeyPrefix = domain.KeyPrefix + "paper:"

// store is the consumer interface for the paper index.
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements paper storage and vector search over one FT index.
type Repo struct {
	store      store
	index      string
	dimensions int
}

// New creates a paper index repository.
func New(s store, indexName string, dimensions int) *Repo {
	return &Repo{store: s, index: indexName, dimensions: dimensions}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.index,
		Prefixes: []string{paperKeyPrefix},
		Fields: []db.FieldDef{
			{Name: "title", Type: db.FieldText},
			{Name: "abstract", Type: db.FieldText},
			{Name: "source", Type: db.FieldTag},
			{Name: "year", Type: db.FieldNumeric},
			{Name: "vector", Type: db.FieldVector, Dimensions: r.dimensions},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	return nil
}

// Upsert writes papers and their vectors in one pipelined batch. vectors
// must be positionally aligned with papers.
func (r *Repo) Upsert(ctx context.Context, papers []domain.Paper, vectors [][]float32) error {
	if len(papers) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d papers", len(vectors), len(papers))
	}
	if len(papers) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(papers))
	for i, p := range papers {
		items = append(items, db.HashSetItem{
			Key:    paperKeyPrefix + p.ID,
			Fields: buildHashFields(&p, vectors[i]),
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset papers: %w", err)
	}
	return nil
}

// Get returns one stored paper by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Paper, error) {
	fields, err := r.store.HGetAll(ctx, paperKeyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Paper{}, domain.ErrNotFound
		}
		return domain.Paper{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.Paper{}, domain.ErrNotFound
	}
	return parseHashFields(id, fields), nil
}

// Search returns the k nearest papers to the query vector, most similar
// first. Scores are cosine similarity in [0, 1].
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.Paper, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.index,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"title", "abstract", "url", "source", "authors", "categories", "year"},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, fmt.Errorf("knn search %s: %w", r.index, err)
	}

	papers := make([]domain.Paper, 0, len(result.Entries))
	for _, entry := range result.Entries {
		p := parseHashFields(strings.TrimPrefix(entry.Key, paperKeyPrefix), entry.Fields)
		p.Score = entry.Score
		papers = append(papers, p)
	}
	return papers, nil
}
