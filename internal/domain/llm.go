package domain

import (
	"context"
	"encoding/json"
)

// FunctionSpec describes the function a chat model must call. Parameters is
// a JSON Schema object.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// FunctionCallRequest is one forced function-call completion.
type FunctionCallRequest struct {
	// Component labels metrics ("validator", "summarizer").
	Component   string
	Model       string
	System      string
	User        string
	Temperature float32
	Function    FunctionSpec
}

// ChatClient runs a forced function call and returns the function's
// arguments as valid JSON.
type ChatClient interface {
	FunctionCall(ctx context.Context, req FunctionCallRequest) (json.RawMessage, error)
}
