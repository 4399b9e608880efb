package sdk

import "fmt"

// Error codes returned by the API.
const (
	CodeBadRequest        = "bad_request"
	CodeInvalidQuery      = "invalid_query"
	CodeRateLimited       = "rate_limited"
	CodeEmbeddingProvider = "embedding_provider_error"
	CodeLLMProvider       = "llm_provider_error"
	CodeIndexNotFound     = "index_not_found"
	CodeNotFound          = "not_found"
	CodeInternalError     = "internal_error"
)

// APIError is a structured error response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("querie api: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}
