package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/fyrsmithlabs/contextd/internal/config"
)

// AnthropicClient implements Client against the Anthropic Messages API. It
// replaces the placeholder callLLM stub the teacher left pending real
// integration: real request construction, real retries, real usage
// accounting.
type AnthropicClient struct {
	client       anthropic.Client
	maxRetries   int
	retryBackoff time.Duration
}

// NewAnthropicClient builds an AnthropicClient from LLMConfig.
func NewAnthropicClient(cfg config.LLMConfig) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey.Value())}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	backoffInterval := cfg.RetryBackoff
	if backoffInterval <= 0 {
		backoffInterval = 250 * time.Millisecond
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		maxRetries:   maxRetries,
		retryBackoff: backoffInterval,
	}
}

// Complete sends req to the Messages API, retrying transient (5xx, 429,
// overloaded) failures with exponential backoff. Non-transient errors
// (invalid request, auth failure) are returned immediately.
func (c *AnthropicClient) Complete(ctx context.Context, req CompleteRequest) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBackoff
	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	var msg *anthropic.Message
	err := backoff.Retry(func() error {
		m, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if !isTransientAnthropicError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		msg = m
		return nil
	}, bounded)

	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, fmt.Errorf("anthropic: request failed: %w", permanent.Unwrap())
		}
		return nil, fmt.Errorf("anthropic: request failed after retries: %w", err)
	}

	return fromAnthropicMessage(msg), nil
}

// isTransientAnthropicError reports whether err is worth retrying: rate
// limiting (429), server overload (529), and 5xx responses. Invalid
// requests (400), auth failures (401/403), and not-found (404) are not.
func isTransientAnthropicError(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch {
	case apiErr.StatusCode == 429, apiErr.StatusCode >= 500:
		return true
	default:
		return false
	}
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch {
		case len(m.ToolResults) > 0:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		case len(m.ToolCalls) > 0:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Input, tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case m.Role == RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func toAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = anthropic.ToolUnionParamOfTool(anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.InputSchema,
			},
		})
	}
	return out
}

func fromAnthropicMessage(msg *anthropic.Message) *Response {
	resp := &Response{
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			input := map[string]interface{}{}
			_ = json.Unmarshal(variant.Input, &input)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}
	return resp
}
