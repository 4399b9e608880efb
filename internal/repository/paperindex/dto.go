package paperindex

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/querie/querie/internal/domain"
)

// listSep joins multi-value fields inside a hash. It never appears in
// author names or category labels.
const listSep = "\x1f"

// buildHashFields flattens a paper and its vector into HSET fields.
func buildHashFields(p *domain.Paper, vector []float32) map[string]string {
	m := map[string]string{
		"title":    p.Title,
		"abstract": p.Abstract,
		"url":      p.URL,
		"source":   string(p.Source),
		"vector":   vectorToBytes(vector),
	}
	if len(p.Authors) > 0 {
		m["authors"] = strings.Join(p.Authors, listSep)
	}
	if len(p.Categories) > 0 {
		m["categories"] = strings.Join(p.Categories, listSep)
	}
	if p.Year > 0 {
		m["year"] = strconv.Itoa(p.Year)
	}
	return m
}

// parseHashFields rebuilds a paper from its hash fields.
func parseHashFields(id string, m map[string]string) domain.Paper {
	p := domain.Paper{
		ID:       id,
		Title:    m["title"],
		Abstract: m["abstract"],
		URL:      m["url"],
		Source:   domain.Source(m["source"]),
	}
	if v := m["authors"]; v != "" {
		p.Authors = strings.Split(v, listSep)
	}
	if v := m["categories"]; v != "" {
		p.Categories = strings.Split(v, listSep)
	}
	if v := m["year"]; v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			p.Year = y
		}
	}
	return p
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
