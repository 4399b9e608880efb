package domain

import "errors"

var (
	// ErrInvalidQuery signals a query rejected by validation, by rule or by model.
	ErrInvalidQuery = errors.New("invalid research query")
	// ErrRateLimited signals an inbound rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a language model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrWebSearchUnavailable signals that the web search provider is down or breaker-open.
	ErrWebSearchUnavailable = errors.New("web search unavailable")
	// ErrIndexNotFound signals a missing paper index.
	ErrIndexNotFound = errors.New("paper index not found")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
