// Package llm abstracts model-provider chat completion behind a single
// Client interface, so the Agentic Orchestrator can drive any tier (Fast,
// Pro, DeepThink) without knowing which provider or model backs it.
package llm

import "context"

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation. An assistant Message that invoked
// tools carries ToolCalls; the Message that follows it (role user) carries
// the corresponding ToolResults, keyed by ToolCallID.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolResult reports the outcome of executing a ToolCall back to the model.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Tool describes one function the model may invoke.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCall is a model-issued request to invoke a Tool.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// Response is a completed model turn.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// CompleteRequest is one call to a model tier.
type CompleteRequest struct {
	Model       string
	MaxTokens   int
	System      string
	Messages    []Message
	Tools       []Tool
	Temperature float64
}

// Client abstracts a model-provider's chat completion API.
type Client interface {
	Complete(ctx context.Context, req CompleteRequest) (*Response, error)
}
