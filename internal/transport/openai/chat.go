package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/querie/querie/internal/domain"
	"github.com/querie/querie/internal/metrics"
)

// Chat is a chat-completion client that forces the model into a single
// function call and returns its arguments as JSON.
type Chat struct {
	client *openai.Client
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	APIKey  string
	BaseURL string
}

// NewChat creates an OpenAI-compatible chat client.
func NewChat(cfg ChatConfig) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Chat{client: openai.NewClientWithConfig(clientCfg)}
}

// FunctionCall implements domain.ChatClient. Malformed JSON from the model
// is repaired before being returned, so callers can unmarshal the result
// directly.
func (c *Chat) FunctionCall(ctx context.Context, req domain.FunctionCallRequest) (json.RawMessage, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// go-openai omits a zero temperature from the request body; the
		// smallest positive float keeps the model effectively deterministic.
		temperature = math.SmallestNonzeroFloat32
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Function.Name,
				Description: req.Function.Description,
				Parameters:  req.Function.Parameters,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.Function.Name},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, apiReq)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Component, req.Model, "error").Inc()
		return nil, parseAPIError("chat", err, domain.ErrLLMProviderError)
	}

	args, err := extractArguments(resp, req.Function.Name)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Component, req.Model, "error").Inc()
		return nil, err
	}

	metrics.LLMRequestsTotal.WithLabelValues(req.Component, req.Model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(req.Component, req.Model).Observe(duration.Seconds())
	return args, nil
}

func extractArguments(resp openai.ChatCompletionResponse, fnName string) (json.RawMessage, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty chat response: %w", domain.ErrLLMProviderError)
	}
	for _, call := range resp.Choices[0].Message.ToolCalls {
		if call.Function.Name != fnName {
			continue
		}
		args := call.Function.Arguments
		if !json.Valid([]byte(args)) {
			repaired, repairErr := jsonrepair.JSONRepair(args)
			if repairErr != nil {
				return nil, fmt.Errorf("unrepairable function arguments: %w", domain.ErrLLMProviderError)
			}
			args = repaired
		}
		return json.RawMessage(args), nil
	}
	return nil, fmt.Errorf("model did not call %s: %w", fnName, domain.ErrLLMProviderError)
}
