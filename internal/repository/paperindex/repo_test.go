package paperindex

import (
	"context"
	"errors"
	"testing"

	"github.com/querie/querie/internal/db"
	"github.com/querie/querie/internal/domain"
)

type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	ms := &mockStore{}
	var gotDef *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		gotDef = def
		return nil
	}

	repo := New(ms, "papers-idx", 768)
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotDef == nil {
		t.Fatal("CreateIndex not called")
	}
	if gotDef.Name != "papers-idx" {
		t.Errorf("index name = %q", gotDef.Name)
	}
	var vecField *db.FieldDef
	for i := range gotDef.Fields {
		if gotDef.Fields[i].Type == db.FieldVector {
			vecField = &gotDef.Fields[i]
		}
	}
	if vecField == nil || vecField.Dimensions != 768 {
		t.Errorf("vector field = %+v, want 768 dimensions", vecField)
	}
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	ms := &mockStore{}
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Error("CreateIndex called for existing index")
		return nil
	}

	repo := New(ms, "papers-idx", 768)
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsert_WritesAllPapers(t *testing.T) {
	ms := &mockStore{}
	var gotItems []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		gotItems = items
		return nil
	}

	repo := New(ms, "papers-idx", 2)
	papers := []domain.Paper{
		{ID: "arxiv_1", Title: "One", Abstract: "a", Source: domain.SourceArxiv, Authors: []string{"A", "B"}, Year: 2020},
		{ID: "pubmed_2", Title: "Two", Abstract: "b", Source: domain.SourcePubMed},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := repo.Upsert(context.Background(), papers, vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotItems) != 2 {
		t.Fatalf("wrote %d items, want 2", len(gotItems))
	}
	if gotItems[0].Key != paperKeyPrefix+"arxiv_1" {
		t.Errorf("key = %q", gotItems[0].Key)
	}
	if gotItems[0].Fields["authors"] != "A"+listSep+"B" {
		t.Errorf("authors field = %q", gotItems[0].Fields["authors"])
	}
	if gotItems[0].Fields["year"] != "2020" {
		t.Errorf("year field = %q", gotItems[0].Fields["year"])
	}
	if len(gotItems[1].Fields["vector"]) != 8 {
		t.Errorf("vector field has %d bytes, want 8", len(gotItems[1].Fields["vector"]))
	}
}

func TestUpsert_RejectsMisalignedVectors(t *testing.T) {
	repo := New(&mockStore{}, "papers-idx", 2)
	papers := []domain.Paper{{ID: "x"}}
	if err := repo.Upsert(context.Background(), papers, nil); err == nil {
		t.Fatal("expected alignment error")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(&mockStore{}, "papers-idx", 2)
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSearch_MapsEntriesToPapers(t *testing.T) {
	ms := &mockStore{}
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.K != 3 {
			t.Errorf("K = %d, want 3", q.K)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:   paperKeyPrefix + "arxiv_9",
				Score: 0.87,
				Fields: map[string]string{
					"title":    "Herd Dynamics",
					"abstract": "long enough",
					"source":   "arxiv",
					"year":     "2022",
					"authors":  "A" + listSep + "B",
				},
			}},
		}, nil
	}

	repo := New(ms, "papers-idx", 2)
	papers, err := repo.Search(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.ID != "arxiv_9" || p.Score != 0.87 || p.Year != 2022 {
		t.Errorf("paper = %+v", p)
	}
	if len(p.Authors) != 2 {
		t.Errorf("authors = %v", p.Authors)
	}
}

func TestSearch_IndexMissing(t *testing.T) {
	ms := &mockStore{}
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	repo := New(ms, "papers-idx", 2)
	if _, err := repo.Search(context.Background(), []float32{0.1, 0.2}, 3); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("got %v, want domain.ErrIndexNotFound", err)
	}
}
