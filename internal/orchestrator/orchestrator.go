package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/intent"
	"github.com/fyrsmithlabs/contextd/internal/llm"
	"github.com/fyrsmithlabs/contextd/internal/memory"
	"github.com/fyrsmithlabs/contextd/internal/postprocess"
	"github.com/fyrsmithlabs/contextd/internal/tools"
	"go.uber.org/zap"
)

// maxConsecutiveFailures finalizes the loop early once the same tool has
// failed this many times in a row, rather than letting the model keep
// retrying a tool that clearly will not succeed this turn.
const maxConsecutiveFailures = 2

// Orchestrator drives the ReAct loop: Start builds the system prompt and
// seeds the message history, Reasoning asks the tiered model for its next
// turn, Acting dispatches any tool calls the model requested back through
// the Tool Catalog, and Finalize runs the draft through the Response
// Post-Processor once the model stops calling tools (or a budget/failure
// guard cuts the loop short).
type Orchestrator struct {
	router    *llm.TierRouter
	catalog   *tools.Catalog
	processor *postprocess.Processor
	memory    *memory.Store
	logger    *zap.Logger
}

// NewOrchestrator wires the Agentic Orchestrator over its four
// collaborators. memory may be nil for callers that manage conversation
// history themselves (e.g. a one-shot CLI invocation).
func NewOrchestrator(router *llm.TierRouter, catalog *tools.Catalog, processor *postprocess.Processor, store *memory.Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{router: router, catalog: catalog, processor: processor, memory: store, logger: logger}
}

// Process runs the ReAct loop to completion without streaming intermediate
// events, persisting the turn pair to memory when a store is configured.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	return o.ProcessStream(ctx, req, func(Event) {})
}

// ProcessStream runs the ReAct loop, emitting a lifecycle event to emit for
// every model token and every tool-call phase. Tool phases emit
// EventToolStart/EventToolEnd instead of raw tokens, per the streaming
// discipline: a caller rendering tokens live should not show anything while
// a tool is running.
func (o *Orchestrator) ProcessStream(ctx context.Context, req Request, emit EventSink) (*Result, error) {
	classification := intent.Classify(req.Query)
	tier := classification.Tier
	history := recentNonErrorTurns(req.History)

	messages := historyToMessages(history)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Query})
	systemPrompt := buildSystemPrompt(tier, req.Query, history)
	specs := o.catalog.Specs()
	maxTools := o.router.MaxToolCalls(tier)

	var toolTrace []ToolTraceEntry
	var failures string
	failureStreak := 0
	var lastDraft string

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := o.router.Complete(ctx, tier, llm.CompleteRequest{
			System:   systemPrompt,
			Messages: messages,
			Tools:    specs,
		})
		if err != nil {
			return nil, err
		}

		if resp.Content != "" {
			lastDraft = resp.Content
			emit(Event{Kind: EventToken, Token: resp.Content})
		}

		if len(resp.ToolCalls) == 0 {
			return o.finalize(ctx, req, lastDraft, toolTrace, emit)
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})

		var toolResults []llm.ToolResult
		budgetExhausted := false
		for _, tc := range resp.ToolCalls {
			if len(toolTrace) >= maxTools {
				budgetExhausted = true
				break
			}

			emit(Event{Kind: EventToolStart, Tool: tc.Name, ToolArgs: tc.Input})
			start := time.Now()
			result, invokeErr := o.catalog.Invoke(ctx, tc.Name, tc.Input)
			duration := time.Since(start)

			entry := ToolTraceEntry{Tool: tc.Name, Input: tc.Input, DurationMS: duration.Milliseconds()}
			var content string
			isError := invokeErr != nil
			if isError {
				entry.Err = invokeErr.Error()
				content = "error: " + invokeErr.Error()
				if tc.Name == failures {
					failureStreak++
				} else {
					failures = tc.Name
					failureStreak = 1
				}
			} else {
				entry.Raw = result
				content = stringifyToolResult(result)
				entry.Output = content
				failures = ""
				failureStreak = 0
			}
			toolTrace = append(toolTrace, entry)
			emit(Event{Kind: EventToolEnd, Tool: tc.Name})

			toolResults = append(toolResults, llm.ToolResult{ToolCallID: tc.ID, Content: content, IsError: isError})

			if isError && failureStreak >= maxConsecutiveFailures {
				o.logger.Warn("orchestrator: tool failed repeatedly, finalizing early",
					zap.String("tool", tc.Name), zap.Int("streak", failureStreak))
				messages = append(messages, llm.Message{Role: llm.RoleUser, ToolResults: toolResults})
				return o.finalize(ctx, req, lastDraft, toolTrace, emit)
			}
		}

		messages = append(messages, llm.Message{Role: llm.RoleUser, ToolResults: toolResults})

		if budgetExhausted || len(toolTrace) >= maxTools {
			o.logger.Debug("orchestrator: tool budget exhausted, finalizing", zap.Int("max_tools", maxTools))
			return o.finalize(ctx, req, lastDraft, toolTrace, emit)
		}
	}
}

// finalize runs the accumulated draft through the Response Post-Processor,
// persists the turn pair to memory (when configured), and emits the
// terminal EventDone.
func (o *Orchestrator) finalize(ctx context.Context, req Request, draft string, toolTrace []ToolTraceEntry, emit EventSink) (*Result, error) {
	pp := o.processor.Process(ctx, postprocess.Request{
		Query:     req.Query,
		Draft:     draft,
		ToolTrace: toPostprocessTrace(toolTrace),
	})

	sources := make([]Citation, len(pp.Citations))
	for i, c := range pp.Citations {
		sources[i] = Citation{Index: c.Index, Title: c.Title, Snippet: c.Snippet, Link: c.Link}
	}

	result := &Result{
		Answer:            pp.Text,
		Sources:           sources,
		VerificationScore: pp.VerificationScore,
		ToolTrace:         toolTrace,
	}

	o.persistTurns(ctx, req, result)

	emit(Event{Kind: EventDone, Result: result})
	return result, nil
}

// persistTurns records the user query and the finalized answer to the
// conversation store. Failures are logged, not returned: a memory write
// failure should not turn a successful answer into an error response.
func (o *Orchestrator) persistTurns(ctx context.Context, req Request, result *Result) {
	if o.memory == nil || req.SessionID == "" {
		return
	}

	if _, err := o.memory.Append(ctx, memory.AppendOptions{
		SessionID: req.SessionID,
		Role:      memory.RoleUser,
		Content:   req.Query,
	}); err != nil {
		o.logger.Warn("orchestrator: failed to persist user turn", zap.Error(err))
	}

	invocations := make([]memory.ToolInvocation, len(result.ToolTrace))
	for i, t := range result.ToolTrace {
		invocations[i] = memory.ToolInvocation{Tool: t.Tool, Input: t.Input, Output: t.Output, DurationMS: t.DurationMS}
	}
	citations := make([]string, len(result.Sources))
	for i, c := range result.Sources {
		citations[i] = c.Link
	}

	if _, err := o.memory.Append(ctx, memory.AppendOptions{
		SessionID: req.SessionID,
		Role:      memory.RoleAssistant,
		Content:   result.Answer,
		ToolCalls: invocations,
		Citations: citations,
	}); err != nil {
		o.logger.Warn("orchestrator: failed to persist assistant turn", zap.Error(err))
	}
}

// historyToMessages converts stored conversation turns into the message
// history seeded into the model's context window.
func historyToMessages(history []memory.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == memory.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: turn.Content})
	}
	return out
}

// toPostprocessTrace converts the orchestrator's tool trace into the
// post-processor's reduced view, pulling vector_search's typed results out
// of each entry's Raw value.
func toPostprocessTrace(toolTrace []ToolTraceEntry) []postprocess.ToolResult {
	out := make([]postprocess.ToolResult, 0, len(toolTrace))
	for _, entry := range toolTrace {
		if entry.Tool != "vector_search" || entry.Raw == nil {
			continue
		}
		resp, ok := entry.Raw.(tools.VectorSearchResponse)
		if !ok {
			continue
		}
		hits := make([]postprocess.SearchHit, len(resp.Results))
		for i, r := range resp.Results {
			hits[i] = postprocess.SearchHit{
				Text:             r.Text,
				Score:            r.Score,
				SourceCollection: r.SourceCollection,
				Metadata:         r.Metadata,
			}
		}
		out = append(out, postprocess.ToolResult{Tool: entry.Tool, Results: hits})
	}
	return out
}

// stringifyToolResult renders a handler's return value as the text sent
// back to the model as a tool result message.
func stringifyToolResult(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "(unserializable tool result)"
	}
	return string(b)
}
