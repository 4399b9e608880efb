package domain

import "time"

// ProcessedQuery is the validator's verdict on a raw user query.
// Created once per request and immutable thereafter.
type ProcessedQuery struct {
	OriginalQuery string
	IsValid       bool
	// AcademicTerm is the model-rewritten, search-engine-friendly version of
	// the query. Set only when IsValid.
	AcademicTerm   string
	ProcessingTime time.Duration
}
