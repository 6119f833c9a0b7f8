// Package orchestrator implements the Agentic Orchestrator: the top-level
// ReAct driver that turns a user query into a cited, verified answer by
// alternating between reasoning turns on a tiered model and tool
// invocations against the Tool Catalog.
package orchestrator

import (
	"github.com/fyrsmithlabs/contextd/internal/memory"
)

// Request is one process_query call.
type Request struct {
	Query     string
	UserID    string
	SessionID string
	History   []memory.Turn
}

// ToolTraceEntry records one Reasoning/Acting step taken while answering a
// query, per spec.md §3's Tool Invocation shape.
type ToolTraceEntry struct {
	Tool       string
	Input      map[string]interface{}
	Output     string
	Err        string
	DurationMS int64
	// Raw holds the handler's untouched return value (e.g.
	// tools.VectorSearchResponse), used by the post-processor to build
	// citations without re-parsing Output's JSON text.
	Raw interface{} `json:"-"`
}

// Result is the orchestrator's response contract: process_query(query,
// user_id, conversation_history) -> {answer, sources, verification_score,
// tool_trace}.
type Result struct {
	Answer            string           `json:"answer"`
	Sources           []Citation       `json:"sources,omitempty"`
	VerificationScore int              `json:"verification_score"`
	ToolTrace         []ToolTraceEntry `json:"tool_trace,omitempty"`
}

// Citation mirrors internal/postprocess.Citation without importing it into
// the public Result contract's json shape verbatim (kept distinct in case
// the two need to diverge as the post-processor evolves).
type Citation struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// EventKind identifies one streaming lifecycle event.
type EventKind string

const (
	EventToken     EventKind = "token"
	EventToolStart EventKind = "tool_start"
	EventToolEnd   EventKind = "tool_end"
	EventDone      EventKind = "done"
)

// Event is one item in the streaming variant's event sequence. Tool-call
// phases emit structured lifecycle events rather than raw model tokens,
// per spec.md 4.H's streaming discipline.
type Event struct {
	Kind     EventKind
	Token    string
	Tool     string
	ToolArgs map[string]interface{}
	Result   *Result // only set on EventDone
}

// EventSink receives streaming events as the orchestrator produces them.
type EventSink func(Event)
