package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/querie/querie/internal/db"
)

// CreateIndex issues FT.CREATE for the given definition. Returns
// db.ErrIndexExists when the index is already there, so callers can treat
// creation as idempotent.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes the index with FT.INFO. An "unknown index name"
// reply means absent, anything else is a real error.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isRedisErr(err, "unknown index name"):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
}

func createArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name, "ON", "HASH"}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		f := &idx.Fields[i]
		switch f.Type {
		case db.FieldVector:
			if f.Dimensions <= 0 {
				return nil, errors.New("vector field requires dimensions")
			}
			args = append(args, f.Name, "VECTOR", "HNSW", "6",
				"TYPE", "FLOAT32",
				"DIM", strconv.Itoa(f.Dimensions),
				"DISTANCE_METRIC", "COSINE",
			)
		case db.FieldTag:
			args = append(args, f.Name, "TAG")
		case db.FieldText:
			args = append(args, f.Name, "TEXT")
		case db.FieldNumeric:
			args = append(args, f.Name, "NUMERIC")
		default:
			return nil, errors.New("unknown field type: " + string(f.Type))
		}
	}

	return args, nil
}
