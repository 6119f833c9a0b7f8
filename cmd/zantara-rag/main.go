// zantara-rag is the agentic retrieval-augmented advisory service for
// Indonesian visa, tax, legal, and business questions.
//
// It starts an HTTP/SSE server that routes queries through the Intelligent
// Query Router, the Hybrid Search Service, and the Agentic Orchestrator's
// ReAct loop, returning a cited, confidence-scored answer.
//
// Configuration is loaded from environment variables. See internal/config
// for the full list.
//
// Usage:
//
//	zantara-rag serve
//	zantara-rag migrate
//	zantara-rag route-debug "how much does a KITAS cost"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/contextd/internal/config"
	"github.com/fyrsmithlabs/contextd/internal/embeddings"
	"github.com/fyrsmithlabs/contextd/internal/language"
	"github.com/fyrsmithlabs/contextd/internal/llm"
	"github.com/fyrsmithlabs/contextd/internal/memory"
	"github.com/fyrsmithlabs/contextd/internal/migrate"
	"github.com/fyrsmithlabs/contextd/internal/orchestrator"
	"github.com/fyrsmithlabs/contextd/internal/postprocess"
	"github.com/fyrsmithlabs/contextd/internal/reranker"
	"github.com/fyrsmithlabs/contextd/internal/router"
	"github.com/fyrsmithlabs/contextd/internal/search"
	"github.com/fyrsmithlabs/contextd/internal/tools"
	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"github.com/fyrsmithlabs/contextd/pkg/knowledge"
	"github.com/fyrsmithlabs/contextd/pkg/server"
)

// Version information (set via ldflags during build).
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "zantara-rag",
		Short: "Agentic RAG advisory service for Indonesian visa, tax, legal, and business questions",
	}
	root.AddCommand(serveCmd(), migrateCmd(), routeDebugCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("zantara-rag\nVersion:    %s\nCommit:     %s\nBuild Date: %s\n", version, gitCommit, buildDate)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/SSE server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			return runServe(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending conversation-memory schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			runner, err := migrate.NewRunner(cfg.Memory.PostgresDSN.Value(), cfg.Memory.MigrationsPath, logger)
			if err != nil {
				return fmt.Errorf("opening migration runner: %w", err)
			}
			defer runner.Close()

			return runner.Up(cmd.Context())
		},
	}
}

func routeDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route-debug [query]",
		Short: "Print the Intelligent Query Router's decision for a query without running retrieval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			rt := router.New(cfg.Router)
			decision := rt.Route(args[0], "")

			fmt.Printf("primary_collection: %s\n", decision.PrimaryCollection)
			fmt.Printf("fallback_chain:     %v\n", decision.FallbackChain)
			fmt.Printf("confidence:         %.3f (%s)\n", decision.Confidence, decision.Tier)
			fmt.Printf("pricing:            %v\n", decision.Pricing)
			fmt.Printf("domain_scores:      %v\n", decision.DomainScores)
			return nil
		},
	}
}

// initLogger builds the structured logger, production-shaped when
// telemetry is enabled and development-shaped (human-readable, debug
// level) otherwise.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Observability.EnableTelemetry {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// runServe wires every core package into a server.Dependencies bundle and
// blocks serving HTTP until ctx is cancelled.
func runServe(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting zantara-rag",
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName))

	embedder, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		APIKey:   cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	defer embedder.Close()

	store, err := vectorstore.NewStore(cfg, cfg.Router.GeneralCollection, embedder, logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer store.Close()

	rt := router.New(cfg.Router)

	cache, err := search.NewCache(cfg.Search.CacheMaxEntries, cfg.Search.CacheTTL)
	if err != nil {
		return fmt.Errorf("creating search cache: %w", err)
	}

	rr := reranker.NewSimpleReranker()
	searchSvc := search.NewService(store, rt, embedder, rr, cache, cfg.Search, logger)

	llmClient := llm.NewAnthropicClient(cfg.LLM)
	tierRouter := llm.NewTierRouter(llmClient, cfg.Orchestrator)

	var sqlPool *pgxpool.Pool
	if dsn := cfg.Tools.SQLDSN.Value(); dsn != "" {
		sqlPool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			logger.Warn("sql_lookup tool not registered: failed to connect", zap.Error(err))
			sqlPool = nil
		} else {
			defer sqlPool.Close()
		}
	}

	catalog := tools.NewDefaultCatalog(tools.DefaultCatalogConfig{
		SearchService:     searchSvc,
		Store:             store,
		Embedder:          embedder,
		PricingCollection: cfg.Router.PricingCollection,
		PricingTopK:       cfg.Search.TopK,
		CalculatorMaxLen:  cfg.Tools.CalculatorMaxInput,
		SQLPool:           sqlPool,
		SQLMaxRows:        cfg.Tools.SQLMaxRows,
		VisionClient:      llmClient,
		VisionModel:       cfg.Orchestrator.Pro.Model,
	})

	processor := postprocess.NewProcessor(llmClient, cfg.Orchestrator.Pro.Model, language.English, logger)

	var memStore *memory.Store
	if dsn := cfg.Memory.PostgresDSN.Value(); dsn != "" {
		memStore, err = memory.NewStore(ctx, memory.Config{
			DSN:          dsn,
			MaxTurns:     cfg.Memory.MaxTurns,
			QueryTimeout: cfg.Memory.QueryTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating conversation memory store: %w", err)
		}
		defer memStore.Close()
	}

	orch := orchestrator.NewOrchestrator(tierRouter, catalog, processor, memStore, logger)

	fleet := knowledge.NewFleet(rt, fmt.Sprintf("http://%s:%d", cfg.Qdrant.Host, cfg.Qdrant.HTTPPort), embedder)

	deps := server.Dependencies{
		Orchestrator: orch,
		Knowledge:    fleet,
	}
	if memStore != nil {
		deps.History = memStore
	}

	srv := server.NewServer(cfg, deps)

	logger.Info("server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("query_endpoint", "/v1/query"),
		zap.String("knowledge_endpoint", "/v1/knowledge/search"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Start(ctx)
}
