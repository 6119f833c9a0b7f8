// Package embeddings provides embedding generation via an OpenAI-compatible
// embedding endpoint (TEI or equivalent).
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// MaxChars is the maximum number of characters accepted per text. Longer
// texts are truncated before being sent to the embedding endpoint; callers
// that need the full text embedded should chunk it upstream.
const MaxChars = 8000

// ErrorKind classifies an EmbeddingError for caller-side retry decisions.
type ErrorKind int

const (
	// ErrorKindUnknown is the zero value, used when a cause cannot be classified.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindInvalidInput means the request itself was malformed (empty
	// text, bad config); retrying with the same input will not help.
	ErrorKindInvalidInput
	// ErrorKindTransient means the failure was a network or 5xx error and a
	// retry with backoff may succeed.
	ErrorKindTransient
	// ErrorKindRateLimited means the endpoint returned 429.
	ErrorKindRateLimited
)

// EmbeddingError wraps a failure from the embedding gateway with a kind the
// caller can branch on to decide whether to retry.
type EmbeddingError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embeddings: %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller should retry the operation that
// produced this error (transient network failures and rate limiting).
func (e *EmbeddingError) Retryable() bool {
	return e.Kind == ErrorKindTransient || e.Kind == ErrorKindRateLimited
}

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the base URL for the embedding API.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// APIKey is the API key, required for hosted providers and optional
	// for self-hosted TEI deployments.
	APIKey string
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("EMBEDDING_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")

	return Config{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return nil
}

// Service provides embedding generation functionality against an
// OpenAI-compatible TEI endpoint.
type Service struct {
	config  Config
	client  *http.Client
	metrics *Metrics
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Service{
		config:  config,
		client:  &http.Client{},
		metrics: NewMetrics(zap.NewNop()),
	}, nil
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

func truncate(text string) string {
	if len(text) <= MaxChars {
		return text
	}
	return text[:MaxChars]
}

// EmbedDocuments generates embeddings for multiple texts. Each text is
// truncated to MaxChars before being sent.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = &EmbeddingError{Kind: ErrorKindInvalidInput, Op: "embed_documents", Err: ErrEmptyInput}
		return nil, genErr
	}

	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncate(t)
	}

	vectors, err := s.doEmbed(ctx, truncated, "embed_documents")
	if err != nil {
		genErr = err
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query, truncated to MaxChars.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = &EmbeddingError{Kind: ErrorKindInvalidInput, Op: "embed_query", Err: ErrEmptyInput}
		return nil, genErr
	}

	vectors, err := s.doEmbed(ctx, truncate(text), "embed_query")
	if err != nil {
		genErr = err
		return nil, err
	}
	if len(vectors) == 0 {
		genErr = &EmbeddingError{Kind: ErrorKindTransient, Op: "embed_query", Err: fmt.Errorf("%w: empty response", ErrEmbeddingFailed)}
		return nil, genErr
	}
	return vectors[0], nil
}

// doEmbed performs the actual TEI request. inputs is either a string or a
// []string, matching teiRequest.Inputs' wire shape. Retries are left to the
// caller (the Search Service), matching the gateway's stated contract.
func (s *Service) doEmbed(ctx context.Context, inputs interface{}, op string) ([][]float32, error) {
	req := teiRequest{Inputs: inputs, Truncate: true}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &EmbeddingError{Kind: ErrorKindInvalidInput, Op: op, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, &EmbeddingError{Kind: ErrorKindInvalidInput, Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &EmbeddingError{Kind: ErrorKindTransient, Op: op, Err: fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &EmbeddingError{Kind: ErrorKindRateLimited, Op: op, Err: fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &EmbeddingError{Kind: ErrorKindTransient, Op: op, Err: fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &EmbeddingError{Kind: ErrorKindInvalidInput, Op: op, Err: fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))}
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, &EmbeddingError{Kind: ErrorKindTransient, Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return vectors, nil
}
