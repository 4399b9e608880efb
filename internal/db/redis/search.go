package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/querie/querie/internal/db"
)

// SearchKNN runs a K-nearest-neighbors query via FT.SEARCH. Scores come
// back as cosine similarity in [0,1], converted from the distance the
// engine reports.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, fmt.Errorf("index name is required")
	case len(q.Vector) == 0:
		return nil, fmt.Errorf("vector is required")
	case q.K <= 0:
		return nil, fmt.Errorf("k must be positive")
	}

	args := []string{q.IndexName, fmt.Sprintf("*=>[KNN %d @vector $BLOB]", q.K)}
	if len(q.ReturnFields) > 0 {
		// The score field rides along so entries can be converted without
		// a second round-trip.
		ret := append([]string{scoreField}, q.ReturnFields...)
		args = append(args, "RETURN", strconv.Itoa(len(ret)))
		args = append(args, ret...)
	}
	args = append(args, "PARAMS", "2", "BLOB", encodeVector(q.Vector), "DIALECT", "2")

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return decodeKNNReply(raw)
}

const scoreField = "__vector_score"

// decodeKNNReply walks the RESP2 FT.SEARCH shape:
// [total, key1, fields1, key2, fields2, ...].
func decodeKNNReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	var entries []db.SearchEntry
	for i := 1; i+1 < len(raw); i += 2 {
		key, keyErr := raw[i].ToString()
		fieldMsgs, fieldsErr := raw[i+1].ToArray()
		if keyErr != nil || fieldsErr != nil {
			continue
		}

		fields := pairsToMap(fieldMsgs)
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  takeScore(fields),
			Fields: fields,
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// takeScore removes the engine score field from the map and converts the
// cosine distance to a similarity, clamped at zero.
func takeScore(fields map[string]string) float64 {
	raw, ok := fields[scoreField]
	if !ok {
		return 0
	}
	delete(fields, scoreField)

	dist, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return max(0, 1.0-dist)
}

func pairsToMap(msgs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(msgs)/2)
	for i := 0; i+1 < len(msgs); i += 2 {
		name, nameErr := msgs[i].ToString()
		value, valueErr := msgs[i+1].ToString()
		if nameErr != nil || valueErr != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// encodeVector packs float32s little-endian, the layout FT.SEARCH expects
// for a FLOAT32 vector blob.
func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
