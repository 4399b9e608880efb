package domain

import "strings"

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "querie:"

// Source identifies a bibliographic provider.
type Source string

// Registered bibliographic providers.
const (
	SourceArxiv           Source = "arxiv"
	SourceOpenAlex        Source = "open_alex"
	SourcePubMed          Source = "pubmed"
	SourceCrossref        Source = "crossref"
	SourceSemanticScholar Source = "semantic_scholar"
)

// Paper is the normalized representation of one academic paper candidate,
// uniform across all providers.
type Paper struct {
	// ID is the provider-scoped identifier, e.g. "arxiv_2301.07041".
	ID       string
	Title    string
	Abstract string
	// URL is the canonical link. Not enforced unique: the same paper may
	// arrive once per provider that indexed it.
	URL        string
	Source     Source
	Authors    []string
	Categories []string
	// Year is the publication year, 0 when unknown.
	Year int
	// Score is the cosine similarity against the query embedding.
	// Meaningful only after ranking.
	Score float64
}

// EmbeddingText returns the text a paper is embedded from: title plus an
// abstract prefix capped at maxAbstract bytes. Capping bounds embedding cost
// and keeps very long abstracts from diluting the signal.
func (p Paper) EmbeddingText(maxAbstract int) string {
	abstract := p.Abstract
	if maxAbstract > 0 && len(abstract) > maxAbstract {
		abstract = abstract[:maxAbstract]
	}
	return strings.TrimSpace(p.Title + " " + abstract)
}
