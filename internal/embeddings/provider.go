// Package embeddings provides embedding generation via multiple providers.
package embeddings

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
)

// DefaultDimension is the embedding dimension this deployment's configured
// model family produces.
const DefaultDimension = 1536

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "tei" (default) or "static".
	Provider string
	// Model is the embedding model name.
	Model string
	// BaseURL is the TEI (or OpenAI-compatible) endpoint URL.
	BaseURL string
	// APIKey authenticates against a hosted embedding endpoint.
	APIKey string
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Unknown custom models fall back to substring matching on common size
// markers, defaulting to DefaultDimension for this deployment's model family.
func detectDimensionFromModel(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "large"):
		return 3072
	case strings.Contains(lower, "small"):
		return 1536
	case strings.Contains(lower, "base"):
		return 768
	case strings.Contains(lower, "mini"):
		return 384
	default:
		return DefaultDimension
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "tei", "":
		svc, err := NewService(Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
		if err != nil {
			return nil, err
		}
		dim := detectDimensionFromModel(cfg.Model)
		return &teiProvider{Service: svc, dimension: dim}, nil
	case "static":
		dim := detectDimensionFromModel(cfg.Model)
		if dim == 0 {
			dim = DefaultDimension
		}
		return NewStaticProvider(dim), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// teiProvider wraps Service to implement Provider interface.
type teiProvider struct {
	*Service
	dimension int
}

// Dimension returns the embedding dimension based on the configured model.
func (t *teiProvider) Dimension() int {
	return t.dimension
}

// Close is a no-op for TEI since it uses HTTP.
func (t *teiProvider) Close() error {
	return nil
}
