// Package server provides the HTTP/SSE transport for zantara-rag.
//
// This package implements a graceful HTTP server with Echo router, health
// and metrics endpoints, the streaming query surface that drives the
// Agentic Orchestrator, and a thin knowledge-search surface over the
// standalone Fleet. It is a transport adapter only: every route delegates
// to a core package, none of the retrieval/orchestration logic lives here.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/contextd/internal/config"
	"github.com/fyrsmithlabs/contextd/internal/memory"
	"github.com/fyrsmithlabs/contextd/internal/orchestrator"
	"github.com/fyrsmithlabs/contextd/internal/router"
	"github.com/fyrsmithlabs/contextd/pkg/knowledge"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Orchestrator is the subset of *orchestrator.Orchestrator the HTTP surface
// needs, narrowed to an interface so handlers are testable without a live
// model provider or database.
type Orchestrator interface {
	ProcessStream(ctx context.Context, req orchestrator.Request, emit orchestrator.EventSink) (*orchestrator.Result, error)
}

// KnowledgeSearcher is the subset of *knowledge.Fleet the HTTP surface
// needs.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, k int, collectionOverride string) ([]knowledge.SearchResult, router.Decision, error)
}

// ConversationHistory is the subset of *memory.Store the query handler
// needs to seed the orchestrator's conversation context.
type ConversationHistory interface {
	History(ctx context.Context, opts memory.HistoryOptions) ([]memory.Turn, error)
}

// Dependencies bundles the core services the HTTP surface delegates to.
// Orchestrator, Knowledge, and History may all be nil in tests that only
// exercise /health and /metrics.
type Dependencies struct {
	Orchestrator Orchestrator
	Knowledge    KnowledgeSearcher
	History      ConversationHistory
}

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	deps   Dependencies
	echo   *echo.Echo
}

// HealthResponse is the JSON response for /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewServer creates a new HTTP server wired over deps.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		config: cfg,
		deps:   deps,
		echo:   e,
	}

	s.registerRoutes()
	return s
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/v1/query", s.handleQuery)
	s.echo.POST("/v1/knowledge/search", s.handleKnowledgeSearch)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.config.Observability.ServiceName,
	})
}

// queryRequest is the POST /v1/query body: process_query's HTTP shape.
type queryRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// sseEvent is the wire shape of one streamed event, matching the
// EventKind values the Agentic Orchestrator already emits (token,
// tool_start, tool_end, done) so no translation layer sits between the
// core and the transport.
type sseEvent struct {
	Kind     string                 `json:"kind"`
	Token    string                 `json:"token,omitempty"`
	Tool     string                 `json:"tool,omitempty"`
	ToolArgs map[string]interface{} `json:"tool_args,omitempty"`
	Result   *orchestrator.Result   `json:"result,omitempty"`
}

// handleQuery runs the ReAct loop for the request and streams its
// lifecycle events back as Server-Sent Events, one JSON object per event.
func (s *Server) handleQuery(c echo.Context) error {
	if s.deps.Orchestrator == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "orchestrator not configured"})
	}

	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	var history []memory.Turn
	if s.deps.History != nil && req.SessionID != "" {
		h, err := s.deps.History.History(c.Request().Context(), memory.HistoryOptions{SessionID: req.SessionID})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load conversation history"})
		}
		history = h
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	_, err := s.deps.Orchestrator.ProcessStream(c.Request().Context(), orchestrator.Request{
		Query:     req.Query,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		History:   history,
	}, func(e orchestrator.Event) {
		writeSSE(resp, sseEvent{
			Kind:     string(e.Kind),
			Token:    e.Token,
			Tool:     e.Tool,
			ToolArgs: e.ToolArgs,
			Result:   e.Result,
		})
	})
	if err != nil {
		writeSSE(resp, sseEvent{Kind: "error", Token: err.Error()})
	}
	return nil
}

// writeSSE serializes one event as a single "data: ..." SSE frame and
// flushes it immediately so the client sees it without buffering delay.
func writeSSE(resp *echo.Response, e sseEvent) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(resp, "data: %s\n\n", b)
	resp.Flush()
}

// knowledgeSearchRequest is the POST /v1/knowledge/search body.
type knowledgeSearchRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	Collection string `json:"collection"`
}

type knowledgeSearchResponse struct {
	Results    []knowledge.SearchResult `json:"results"`
	Collection string                   `json:"collection"`
	Confidence string                   `json:"confidence"`
}

func (s *Server) handleKnowledgeSearch(c echo.Context) error {
	if s.deps.Knowledge == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "knowledge search not configured"})
	}

	var req knowledgeSearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	results, decision, err := s.deps.Knowledge.Search(c.Request().Context(), req.Query, topK, req.Collection)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, knowledgeSearchResponse{
		Results:    results,
		Collection: decision.PrimaryCollection,
		Confidence: decision.Tier.String(),
	})
}

// Start starts the HTTP server and blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance for registering additional routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
