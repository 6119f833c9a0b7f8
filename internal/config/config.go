// Package config provides configuration loading for the zantara-rag service.
//
// Configuration is loaded from environment variables with sensible defaults,
// and may be overlaid with a YAML file via LoadWithFile. This package covers
// server, observability, and the retrieval/orchestration pipeline settings.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete zantara-rag service configuration.
type Config struct {
	Production    ProductionConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Qdrant        QdrantConfig
	Embeddings    EmbeddingsConfig
	Router        RouterConfig
	Search        SearchConfig
	Tools         ToolsConfig
	Orchestrator  OrchestratorConfig
	LLM           LLMConfig
	Memory        MemoryConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry and metrics configuration.
type ObservabilityConfig struct {
	EnableTelemetry   bool   `koanf:"enable_telemetry"`
	ServiceName       string `koanf:"service_name"`
	OTLPEndpoint      string `koanf:"otlp_endpoint"`        // OTLP endpoint (default: localhost:4317)
	OTLPProtocol      string `koanf:"otlp_protocol"`        // "grpc" or "http/protobuf" (default: grpc)
	OTLPInsecure      bool   `koanf:"otlp_insecure"`        // Use insecure connection (default: true for localhost)
	OTLPTLSSkipVerify bool   `koanf:"otlp_tls_skip_verify"` // Skip TLS verification for internal CAs
}

// QdrantConfig holds Qdrant vector database connection configuration.
// Collections themselves are described by Router.Collections, not here --
// this struct is purely about reaching the cluster.
type QdrantConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	HTTPPort int    `koanf:"http_port"`
	APIKey   Secret `koanf:"api_key"`
	UseTLS   bool   `koanf:"use_tls"`
}

// EmbeddingsConfig holds embedding gateway configuration.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"` // "tei" or "static"
	BaseURL   string `koanf:"base_url"` // TEI URL, or OpenAI-compatible base URL
	Model     string `koanf:"model"`    // default: text-embedding-3-small
	APIKey    Secret `koanf:"api_key"`
	Dimension int    `koanf:"dimension"` // default: 1536
	MaxChars  int    `koanf:"max_chars"` // truncation threshold, default: 8000
}

// RouterConfig holds the Intelligent Query Router's collection catalog and
// confidence thresholds.
type RouterConfig struct {
	// Collections maps domain name (e.g. "visa", "tax", "legal", "business",
	// "general") to the Qdrant collection that serves it.
	Collections map[string]string `koanf:"collections"`

	// Aliases collapses near-duplicate domain labels onto a canonical domain
	// name before lookup (e.g. "immigration" -> "visa").
	Aliases map[string]string `koanf:"aliases"`

	// HighConfidenceThreshold routes to the single best-scoring collection
	// with no fallback fan-out. Default: 0.7.
	HighConfidenceThreshold float64 `koanf:"high_confidence_threshold"`

	// MediumConfidenceThreshold routes to the best collection plus the
	// first entry of its fallback chain. Default: 0.3.
	MediumConfidenceThreshold float64 `koanf:"medium_confidence_threshold"`

	// GeneralCollection is the catch-all collection: the primary when no
	// domain scores, and the last entry of the full fallback chain unless it
	// is already the primary.
	GeneralCollection string `koanf:"general_collection"`

	// PricingCollection is consulted whenever the pricing-keyword detector
	// fires, regardless of the domain classification's confidence.
	PricingCollection string `koanf:"pricing_collection"`
}

// SearchConfig holds Hybrid Search Service tuning parameters.
type SearchConfig struct {
	TopK                 int           `koanf:"top_k"`                  // results returned to the caller, default 8
	OversampleFactor      int           `koanf:"oversample_factor"`       // default 4
	RerankEarlyExitScore  float64       `koanf:"rerank_early_exit_score"` // skip reranker above this vector score, default 0.9
	FanoutTimeout         time.Duration `koanf:"fanout_timeout"`          // per-collection search deadline
	CacheTTL              time.Duration `koanf:"cache_ttl"`               // default 5m
	CacheMaxEntries       int           `koanf:"cache_max_entries"`       // default 5000
	RerankerProvider      string        `koanf:"reranker_provider"`       // "cohere", "voyage", or "" for term-overlap fallback
	RerankerAPIKey        Secret        `koanf:"reranker_api_key"`
	RerankerModel         string        `koanf:"reranker_model"`
}

// ToolsConfig holds configuration for the fixed tool catalog.
type ToolsConfig struct {
	SQLDSN             Secret `koanf:"sql_dsn"`               // pgx DSN for sql_lookup, read-only role expected
	SQLMaxRows         int    `koanf:"sql_max_rows"`          // cap on rows returned, default 50
	VisionProvider     string `koanf:"vision_provider"`       // "anthropic" today
	CalculatorMaxInput int    `koanf:"calculator_max_input"`  // max expression length, default 200
}

// OrchestratorConfig holds Agentic Orchestrator tiering and budget settings.
type OrchestratorConfig struct {
	MaxToolInvocations int `koanf:"max_tool_invocations"` // M in the ReAct loop, default 6

	Fast      ModelTierConfig `koanf:"fast"`
	Pro       ModelTierConfig `koanf:"pro"`
	DeepThink ModelTierConfig `koanf:"deep_think"`
}

// ModelTierConfig describes one of the Tiered Quality Router's model tiers.
type ModelTierConfig struct {
	Model          string        `koanf:"model"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxToolCalls   int           `koanf:"max_tool_calls"`
	SystemPrompt   string        `koanf:"system_prompt_path"` // path to a prompt template file, empty uses the built-in default
}

// LLMConfig holds the credentials and defaults for the LLM provider client.
type LLMConfig struct {
	Provider     string        `koanf:"provider"` // "anthropic"
	APIKey       Secret        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"` // override for proxies/testing
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// MemoryConfig holds persisted-state (conversation memory, migrations)
// configuration.
type MemoryConfig struct {
	PostgresDSN    Secret        `koanf:"postgres_dsn"`
	MaxTurns       int           `koanf:"max_turns"`       // truncation window, default 200
	MigrationsPath string        `koanf:"migrations_path"` // default: file://migrations
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// ProductionConfig holds production deployment safety checks.
type ProductionConfig struct {
	// Enabled indicates whether production mode is active.
	// Set via ZANTARA_PRODUCTION_MODE=1 environment variable.
	Enabled bool `koanf:"enabled"`

	// LocalModeAcknowledged allows development features in production mode.
	// Set via ZANTARA_LOCAL_MODE=1 environment variable.
	// Use only for local development/testing.
	LocalModeAcknowledged bool `koanf:"local_mode_acknowledged"`

	// RequireAuthentication enforces authentication in production.
	RequireAuthentication bool `koanf:"require_authentication"`

	// AuthenticationConfigured indicates if auth is properly set up.
	AuthenticationConfigured bool `koanf:"authentication_configured"`

	// RequireTLS records whether TLS is required for external services
	// (Qdrant, OTEL, Postgres). Validate does not check it and no client
	// reads it.
	RequireTLS bool `koanf:"require_tls"`
}

// IsProduction returns true if running in production mode.
func (c *ProductionConfig) IsProduction() bool {
	return c.Enabled
}

// IsLocal returns true if local mode is acknowledged.
func (c *ProductionConfig) IsLocal() bool {
	return c.LocalModeAcknowledged
}

// Validate checks production configuration for security issues.
func (c *ProductionConfig) Validate() error {
	if !c.Enabled {
		return nil // Not in production, skip validation
	}

	if c.RequireAuthentication && !c.AuthenticationConfigured {
		return fmt.Errorf("SECURITY: RequireAuthentication enabled but authentication not configured")
	}

	return nil
}

// Load loads configuration from environment variables with defaults.
//
// Quick Start - Most commonly configured env vars:
//
//   - ANTHROPIC_API_KEY: LLM provider credentials
//   - QDRANT_HOST / QDRANT_PORT: Qdrant endpoint
//   - EMBEDDINGS_API_KEY: embedding gateway credentials
//   - MEMORY_POSTGRES_DSN: conversation memory persistence
//   - ZANTARA_PRODUCTION_MODE: Enable production safety checks (default: false)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Qdrant host:", cfg.Qdrant.Host)
func Load() *Config {
	cfg := &Config{
		Production: ProductionConfig{
			Enabled:               getEnvBool("ZANTARA_PRODUCTION_MODE", false),
			LocalModeAcknowledged: getEnvBool("ZANTARA_LOCAL_MODE", false),
			RequireAuthentication: getEnvBool("ZANTARA_REQUIRE_AUTH", false),
			RequireTLS:            getEnvBool("ZANTARA_REQUIRE_TLS", false),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OTEL_ENABLE", false),
			ServiceName:     getEnvString("OTEL_SERVICE_NAME", "zantara-rag"),
			OTLPEndpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:    getEnvString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			OTLPInsecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}

	cfg.Qdrant = QdrantConfig{
		Host:     getEnvString("QDRANT_HOST", "localhost"),
		Port:     getEnvInt("QDRANT_PORT", 6334),
		HTTPPort: getEnvInt("QDRANT_HTTP_PORT", 6333),
		APIKey:   Secret(getEnvString("QDRANT_API_KEY", "")),
		UseTLS:   getEnvBool("QDRANT_USE_TLS", false),
	}

	cfg.Embeddings = EmbeddingsConfig{
		Provider:  getEnvString("EMBEDDINGS_PROVIDER", "tei"),
		BaseURL:   getEnvString("EMBEDDINGS_BASE_URL", "https://api.openai.com/v1"),
		Model:     getEnvString("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		APIKey:    Secret(getEnvString("EMBEDDINGS_API_KEY", "")),
		Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		MaxChars:  getEnvInt("EMBEDDINGS_MAX_CHARS", 8000),
	}

	cfg.Router = RouterConfig{
		Collections: map[string]string{
			"visa":     getEnvString("ROUTER_COLLECTION_VISA", "kb_visa"),
			"tax":      getEnvString("ROUTER_COLLECTION_TAX", "kb_tax"),
			"legal":    getEnvString("ROUTER_COLLECTION_LEGAL", "kb_legal"),
			"business": getEnvString("ROUTER_COLLECTION_BUSINESS", "kb_business"),
			"general":  getEnvString("ROUTER_COLLECTION_GENERAL", "kb_general"),
		},
		Aliases: map[string]string{
			"immigration": "visa",
			"kitas":       "visa",
			"pajak":       "tax",
			"perusahaan":  "business",
			"pt":          "business",
			"hukum":       "legal",
		},
		HighConfidenceThreshold:   getEnvFloat("ROUTER_HIGH_CONFIDENCE_THRESHOLD", 0.7),
		MediumConfidenceThreshold: getEnvFloat("ROUTER_MEDIUM_CONFIDENCE_THRESHOLD", 0.3),
		GeneralCollection:         getEnvString("ROUTER_COLLECTION_GENERAL", "kb_general"),
		PricingCollection:         getEnvString("ROUTER_COLLECTION_PRICING", "kb_pricing"),
	}

	cfg.Search = SearchConfig{
		TopK:                 getEnvInt("SEARCH_TOP_K", 8),
		OversampleFactor:     getEnvInt("SEARCH_OVERSAMPLE_FACTOR", 4),
		RerankEarlyExitScore: getEnvFloat("SEARCH_RERANK_EARLY_EXIT_SCORE", 0.9),
		FanoutTimeout:        getEnvDuration("SEARCH_FANOUT_TIMEOUT", 5*time.Second),
		CacheTTL:             getEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute),
		CacheMaxEntries:      getEnvInt("SEARCH_CACHE_MAX_ENTRIES", 5000),
		RerankerProvider:     getEnvString("SEARCH_RERANKER_PROVIDER", ""),
		RerankerAPIKey:       Secret(getEnvString("SEARCH_RERANKER_API_KEY", "")),
		RerankerModel:        getEnvString("SEARCH_RERANKER_MODEL", "rerank-2"),
	}

	cfg.Tools = ToolsConfig{
		SQLDSN:             Secret(getEnvString("TOOLS_SQL_DSN", "")),
		SQLMaxRows:         getEnvInt("TOOLS_SQL_MAX_ROWS", 50),
		VisionProvider:     getEnvString("TOOLS_VISION_PROVIDER", "anthropic"),
		CalculatorMaxInput: getEnvInt("TOOLS_CALCULATOR_MAX_INPUT", 200),
	}

	cfg.Orchestrator = OrchestratorConfig{
		MaxToolInvocations: getEnvInt("ORCHESTRATOR_MAX_TOOL_INVOCATIONS", 6),
		Fast: ModelTierConfig{
			Model:        getEnvString("ORCHESTRATOR_FAST_MODEL", "claude-haiku-4-5"),
			Timeout:      getEnvDuration("ORCHESTRATOR_FAST_TIMEOUT", 10*time.Second),
			MaxToolCalls: getEnvInt("ORCHESTRATOR_FAST_MAX_TOOL_CALLS", 2),
		},
		Pro: ModelTierConfig{
			Model:        getEnvString("ORCHESTRATOR_PRO_MODEL", "claude-sonnet-4-5"),
			Timeout:      getEnvDuration("ORCHESTRATOR_PRO_TIMEOUT", 30*time.Second),
			MaxToolCalls: getEnvInt("ORCHESTRATOR_PRO_MAX_TOOL_CALLS", 6),
		},
		DeepThink: ModelTierConfig{
			Model:        getEnvString("ORCHESTRATOR_DEEP_THINK_MODEL", "claude-opus-4-1"),
			Timeout:      getEnvDuration("ORCHESTRATOR_DEEP_THINK_TIMEOUT", 90*time.Second),
			MaxToolCalls: getEnvInt("ORCHESTRATOR_DEEP_THINK_MAX_TOOL_CALLS", 6),
		},
	}

	cfg.LLM = LLMConfig{
		Provider:     getEnvString("LLM_PROVIDER", "anthropic"),
		APIKey:       Secret(getEnvString("ANTHROPIC_API_KEY", "")),
		BaseURL:      getEnvString("LLM_BASE_URL", ""),
		MaxRetries:   getEnvInt("LLM_MAX_RETRIES", 3),
		RetryBackoff: getEnvDuration("LLM_RETRY_BACKOFF", 250*time.Millisecond),
	}

	cfg.Memory = MemoryConfig{
		PostgresDSN:    Secret(getEnvString("MEMORY_POSTGRES_DSN", "")),
		MaxTurns:       getEnvInt("MEMORY_MAX_TURNS", 200),
		MigrationsPath: getEnvString("MEMORY_MIGRATIONS_PATH", "file://migrations"),
		QueryTimeout:   getEnvDuration("MEMORY_QUERY_TIMEOUT", 5*time.Second),
	}

	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Service name is empty (when telemetry is enabled)
//   - Router thresholds are out of [0,1] or inverted
//   - Orchestrator's tool budget is non-positive
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	if err := validateHostname(c.Qdrant.Host); err != nil {
		return fmt.Errorf("invalid QDRANT_HOST: %w", err)
	}

	if c.Embeddings.BaseURL != "" {
		if err := validateURL(c.Embeddings.BaseURL); err != nil {
			return fmt.Errorf("invalid EMBEDDINGS_BASE_URL: %w", err)
		}
	}

	if c.Router.HighConfidenceThreshold <= c.Router.MediumConfidenceThreshold {
		return fmt.Errorf("router high confidence threshold (%f) must exceed medium threshold (%f)",
			c.Router.HighConfidenceThreshold, c.Router.MediumConfidenceThreshold)
	}
	if c.Router.HighConfidenceThreshold > 1.0 || c.Router.MediumConfidenceThreshold < 0.0 {
		return errors.New("router confidence thresholds must be within [0,1]")
	}
	if len(c.Router.Collections) == 0 {
		return errors.New("router must have at least one domain collection configured")
	}

	if c.Search.TopK <= 0 {
		return errors.New("search top_k must be positive")
	}
	if c.Search.OversampleFactor < 1 {
		return errors.New("search oversample_factor must be at least 1")
	}

	if c.Orchestrator.MaxToolInvocations <= 0 {
		return errors.New("orchestrator max_tool_invocations must be positive")
	}

	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// validateHostname checks if a hostname is safe (no command injection attempts).
// Uses positive validation with net.ParseIP for IP addresses and regexp for hostnames.
func validateHostname(host string) error {
	if host == "" {
		return nil
	}

	if net.ParseIP(host) != nil {
		return nil // Valid IP address
	}

	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}

	invalidChars := []string{";", "\n", "\r", "$", "`", "|", "&", "<", ">", "(", ")"}
	for _, char := range invalidChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("invalid hostname: contains forbidden character %q", char)
		}
	}
	return nil
}

// validatePath checks if a path is safe (no path traversal)
func validatePath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}

	if filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		origDepth := strings.Count(path, string(filepath.Separator))
		cleanDepth := strings.Count(clean, string(filepath.Separator))

		if cleanDepth < origDepth-1 {
			return fmt.Errorf("path traversal detected: %s (resolves to %s)", path, clean)
		}
	}

	return nil
}

// validateURL checks if a URL uses allowed schemes (http/https only)
func validateURL(urlStr string) error {
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return fmt.Errorf("URL must use http:// or https:// scheme, got: %s", urlStr)
	}
	return nil
}
