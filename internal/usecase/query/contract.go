package query

import (
	"context"
	"encoding/json"

	"github.com/querie/querie/internal/domain"
)

// ChatClient is the consumer interface for LLM validation.
type ChatClient interface {
	FunctionCall(ctx context.Context, req domain.FunctionCallRequest) (json.RawMessage, error)
}
