// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/contextd/internal/config"
	"go.uber.org/zap"
)

// NewStore creates the federated QdrantStore for the given domain collection.
//
// The router maps each knowledge domain (visa, tax, legal, business, general,
// pricing) to its own Qdrant collection name; NewStore is called once per
// domain at startup, each producing a Store whose default collection is that
// domain's collection. Vector dimensionality always comes from
// cfg.Embeddings.Dimension since every collection stores embeddings from the
// same embedding model.
//
// Example usage:
//
//	cfg := config.Load()
//	generalStore, err := vectorstore.NewStore(cfg, cfg.Router.Collections["general"], embedder, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer generalStore.Close()
func NewStore(cfg *config.Config, collectionName string, embedder Embedder, logger *zap.Logger) (Store, error) {
	if collectionName == "" {
		collectionName = cfg.Router.GeneralCollection
	}

	qdrantCfg := QdrantConfig{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		CollectionName: collectionName,
		VectorSize:     uint64(cfg.Embeddings.Dimension),
		UseTLS:         cfg.Qdrant.UseTLS,
	}

	store, err := NewQdrantStore(qdrantCfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant store for collection %s: %w", collectionName, err)
	}

	logger.Info("vectorstore: qdrant store ready",
		zap.String("collection", collectionName),
		zap.String("host", cfg.Qdrant.Host))

	return store, nil
}

// NewCollectionFleet builds one Store per collection named in cfg.Router.Collections,
// keyed by domain. The Hybrid Search Service fans a single embedded query out
// across the subset of this fleet selected by the Intelligent Query Router.
func NewCollectionFleet(cfg *config.Config, embedder Embedder, logger *zap.Logger) (map[string]Store, error) {
	fleet := make(map[string]Store, len(cfg.Router.Collections))

	for domain, collection := range cfg.Router.Collections {
		store, err := NewStore(cfg, collection, embedder, logger)
		if err != nil {
			for _, s := range fleet {
				_ = s.Close()
			}
			return nil, fmt.Errorf("building store for domain %s: %w", domain, err)
		}
		fleet[domain] = store
	}

	return fleet, nil
}

// NewStoreFromConfig creates a store directly from a QdrantConfig, bypassing
// the application config. Useful in tests and one-off tooling.
func NewStoreFromConfig(qdrantCfg QdrantConfig, embedder Embedder) (Store, error) {
	return NewQdrantStore(qdrantCfg, embedder)
}
