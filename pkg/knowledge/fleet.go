package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/contextd/internal/router"
	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"github.com/tmc/langchaingo/embeddings"
)

// langchainEmbedderAdapter bridges internal/vectorstore.Embedder onto
// langchaingo's embeddings.Embedder interface, generalizing the pattern the
// corpus uses to wire a custom embedder into a langchaingo-backed store.
type langchainEmbedderAdapter struct {
	inner vectorstore.Embedder
}

func (a *langchainEmbedderAdapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return a.inner.EmbedDocuments(ctx, texts)
}

func (a *langchainEmbedderAdapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return a.inner.EmbedQuery(ctx, text)
}

var _ embeddings.Embedder = (*langchainEmbedderAdapter)(nil)

// Fleet is the standalone knowledge-search entry point: a pool of
// single-collection Services, one per routed collection, all sharing the
// same Intelligent Query Router used by the Hybrid Search Service. This
// reuses the router's routing logic rather than re-implementing
// collection selection for this simpler search surface.
type Fleet struct {
	router    *router.Router
	qdrantURL string
	embedder  vectorstore.Embedder

	mu       sync.Mutex
	services map[string]*Service
}

// NewFleet builds a Fleet over the given router, backed by a Qdrant
// instance at qdrantURL, embedding queries with embedder.
func NewFleet(r *router.Router, qdrantURL string, embedder vectorstore.Embedder) *Fleet {
	return &Fleet{
		router:    r,
		qdrantURL: qdrantURL,
		embedder:  embedder,
		services:  make(map[string]*Service),
	}
}

// Search routes query to a collection via the Router, then runs a
// similarity search against that collection's langchaingo-backed Service,
// lazily constructing it on first use.
func (f *Fleet) Search(ctx context.Context, query string, k int, collectionOverride string) ([]SearchResult, router.Decision, error) {
	decision := f.router.Route(query, collectionOverride)

	svc, err := f.serviceFor(decision.PrimaryCollection)
	if err != nil {
		return nil, decision, err
	}

	results, err := svc.Search(ctx, query, k)
	if err != nil {
		return nil, decision, fmt.Errorf("knowledge fleet: searching %s: %w", decision.PrimaryCollection, err)
	}
	return results, decision, nil
}

// serviceFor returns the Service bound to collection, constructing and
// caching it on first use.
func (f *Fleet) serviceFor(collection string) (*Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if svc, ok := f.services[collection]; ok {
		return svc, nil
	}

	svc, err := NewService(Config{
		URL:            f.qdrantURL,
		CollectionName: collection,
		Embedder:       &langchainEmbedderAdapter{inner: f.embedder},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge fleet: constructing service for %s: %w", collection, err)
	}
	f.services[collection] = svc
	return svc, nil
}
