// Package memory persists conversation turns for the Agentic Orchestrator
// across a multi-turn Q&A session, backed by Postgres.
//
// Unlike the retrieval collections in internal/vectorstore, conversation
// memory is small, structured, and relational: a handful of turns per
// session, queried by session ID and truncated to a bounded window rather
// than searched by similarity.
package memory

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolInvocation records one Reasoning/Acting step the orchestrator took
// while producing an assistant turn.
type ToolInvocation struct {
	Tool       string         `json:"tool"`
	Input      map[string]any `json:"input,omitempty"`
	Output     string         `json:"output,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// Turn is a single message within a conversation session.
type Turn struct {
	ID          int64             `json:"id"`
	SessionID   string            `json:"session_id"`
	Role        Role              `json:"role"`
	Content     string            `json:"content"`
	ToolCalls   []ToolInvocation  `json:"tool_calls,omitempty"`
	Citations   []string          `json:"citations,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AppendOptions configures a turn append.
type AppendOptions struct {
	SessionID string
	Role      Role
	Content   string
	ToolCalls []ToolInvocation
	Citations []string
}

// HistoryOptions configures a history read.
type HistoryOptions struct {
	SessionID string
	// Limit bounds the number of most-recent turns returned. Zero means use
	// the store's configured MaxTurns.
	Limit int
}
