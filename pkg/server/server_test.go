package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/config"
	"github.com/fyrsmithlabs/contextd/internal/orchestrator"
	"github.com/fyrsmithlabs/contextd/internal/router"
	"github.com/fyrsmithlabs/contextd/pkg/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrchestrator struct {
	result *orchestrator.Result
	events []orchestrator.Event
	err    error
}

func (s *stubOrchestrator) ProcessStream(ctx context.Context, req orchestrator.Request, emit orchestrator.EventSink) (*orchestrator.Result, error) {
	for _, e := range s.events {
		emit(e)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubKnowledge struct {
	results  []knowledge.SearchResult
	decision router.Decision
	err      error
}

func (s *stubKnowledge) Search(ctx context.Context, query string, k int, collectionOverride string) ([]knowledge.SearchResult, router.Decision, error) {
	return s.results, s.decision, s.err
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
	}

	srv := NewServer(cfg, Dependencies{})
	require.NotNil(t, srv)
	assert.Equal(t, 8080, srv.config.Server.Port)
}

func TestServer_HealthCheck(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8081, ShutdownTimeout: 5 * time.Second},
	}
	srv := NewServer(cfg, Dependencies{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:8081/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}

func TestServer_QueryStreamsSSEEvents(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8085, ShutdownTimeout: 2 * time.Second}}
	srv := NewServer(cfg, Dependencies{
		Orchestrator: &stubOrchestrator{
			events: []orchestrator.Event{
				{Kind: orchestrator.EventToken, Token: "A KITAS"},
				{Kind: orchestrator.EventDone, Result: &orchestrator.Result{Answer: "A KITAS is a permit.", VerificationScore: 90}},
			},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Post("http://localhost:8085/v1/query", "application/json",
		strings.NewReader(`{"query":"What is a KITAS?","session_id":"s1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	assert.Contains(t, body, `"kind":"token"`)
}

func TestServer_QueryRequiresQuery(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8086, ShutdownTimeout: 2 * time.Second}}
	srv := NewServer(cfg, Dependencies{Orchestrator: &stubOrchestrator{}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Post("http://localhost:8086/v1/query", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_KnowledgeSearch(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8087, ShutdownTimeout: 2 * time.Second}}
	srv := NewServer(cfg, Dependencies{
		Knowledge: &stubKnowledge{
			results:  []knowledge.SearchResult{{ID: "1", Content: "KITAS overview", Score: 0.9}},
			decision: router.Decision{PrimaryCollection: "kb_visa", Tier: router.ConfidenceHigh},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Post("http://localhost:8087/v1/knowledge/search", "application/json",
		strings.NewReader(`{"query":"KITAS"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
