// Package search implements the Hybrid Search Service: it turns a natural
// language query into a routed, reranked, conflict-resolved set of results
// drawn from one or more Qdrant collections.
package search

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fyrsmithlabs/contextd/internal/config"
	"github.com/fyrsmithlabs/contextd/internal/embeddings"
	"github.com/fyrsmithlabs/contextd/internal/reranker"
	"github.com/fyrsmithlabs/contextd/internal/router"
	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"go.uber.org/zap"
)

// tieredCollectionSuffix marks collections whose results are subject to
// tier/user-level filtering. Everything else passes through unfiltered.
const tieredCollectionSuffix = "zantara_books"

// Request describes one Search call.
type Request struct {
	Query              string
	TopK               int
	UserLevel          int
	TierFilter         string
	CollectionOverride string
}

// Service is the Hybrid Search Service facade: embed -> route -> fan out ->
// dedupe -> rerank-or-early-exit -> resolve conflicts -> annotate source.
type Service struct {
	store    vectorstore.Store
	router   *router.Router
	embedder vectorstore.Embedder
	reranker reranker.Reranker
	cache    *Cache
	cfg      config.SearchConfig
	logger   *zap.Logger
}

// NewService wires the Search Service's collaborators. reranker may be nil,
// in which case Search always takes the top_k by vector score.
func NewService(store vectorstore.Store, rt *router.Router, embedder vectorstore.Embedder, rr reranker.Reranker, cache *Cache, cfg config.SearchConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		router:   rt,
		embedder: embedder,
		reranker: rr,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs the full retrieval pipeline for req and returns up to req.TopK
// results, each annotated with the collection it was retrieved from.
func (s *Service) Search(ctx context.Context, req Request) ([]vectorstore.SearchResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if topK <= 0 {
		topK = 5
	}

	decision := s.router.Route(req.Query, req.CollectionOverride)
	targets := targetCollections(decision)

	key := Key(req.Query, decision.PrimaryCollection, decision.FallbackChain, req.TierFilter)

	results, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]vectorstore.SearchResult, error) {
		return s.execute(ctx, req, targets, topK)
	})
	if err != nil {
		return nil, err
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// execute runs the uncached retrieval pipeline: embed, fan out, dedupe,
// rerank-or-early-exit, resolve conflicts.
func (s *Service) execute(ctx context.Context, req Request, targets []string, topK int) ([]vectorstore.SearchResult, error) {
	vectors, err := s.embedQueryWithRetry(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	oversample := s.cfg.OversampleFactor
	if oversample <= 0 {
		oversample = 4
	}
	perCollectionK := topK * oversample

	filter := tierFilter(req.UserLevel, req.TierFilter)
	filterFor := func(collection string) map[string]interface{} {
		if isTieredCollection(collection) {
			return filter
		}
		return nil
	}

	fanoutResults := fanOut(ctx, s.store, targets, vectors, perCollectionK, filterFor, s.cfg.FanoutTimeout, s.logger)

	deduped := dedupe(fanoutResults)

	ranked := s.rankOrEarlyExit(ctx, req.Query, deduped, topK)

	return resolveConflicts(ranked), nil
}

// targetCollections builds the fan-out list: the primary collection plus any
// fallback chain the Router attached for sub-High confidence routing.
func targetCollections(d router.Decision) []string {
	targets := []string{d.PrimaryCollection}
	targets = append(targets, d.FallbackChain...)
	return targets
}

// tierFilter translates a tier/user-level policy into the backend filter
// dict applied only to zantara_books-type collections.
func tierFilter(userLevel int, tierFilter string) map[string]interface{} {
	f := make(map[string]interface{})
	if tierFilter != "" {
		f["tier"] = tierFilter
	}
	f["user_level_gte"] = userLevel
	return f
}

func isTieredCollection(name string) bool {
	return len(name) >= len(tieredCollectionSuffix) && name[len(name)-len(tieredCollectionSuffix):] == tieredCollectionSuffix
}

// rankOrEarlyExit reranks the candidate pool when a reranker is configured
// and the pool exceeds topK, unless the top vector-scored candidate already
// exceeds the early-exit threshold. Falls back to vector-score ordering on
// reranker failure or absence.
func (s *Service) rankOrEarlyExit(ctx context.Context, query string, candidates []vectorstore.SearchResult, topK int) []vectorstore.SearchResult {
	if len(candidates) == 0 {
		return candidates
	}

	byVector := append([]vectorstore.SearchResult(nil), candidates...)
	sort.SliceStable(byVector, func(i, j int) bool { return byVector[i].Score > byVector[j].Score })

	earlyExitScore := s.cfg.RerankEarlyExitScore
	if earlyExitScore <= 0 {
		earlyExitScore = 0.9
	}
	if byVector[0].Score > float32(earlyExitScore) {
		s.logger.Debug("search: reranker early exit", zap.Float32("top_score", byVector[0].Score))
		return capResults(byVector, topK)
	}

	if s.reranker == nil || len(candidates) <= topK {
		return capResults(byVector, topK)
	}

	docs := make([]reranker.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = reranker.Document{ID: c.ID, Content: c.Content, Score: c.Score, Metadata: c.Metadata}
	}

	scored, err := s.reranker.Rerank(ctx, query, docs, topK)
	if err != nil {
		s.logger.Warn("search: reranker failed, falling back to vector order", zap.Error(err))
		return capResults(byVector, topK)
	}

	byID := make(map[string]vectorstore.SearchResult, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	out := make([]vectorstore.SearchResult, 0, len(scored))
	for _, sd := range scored {
		r, ok := byID[sd.ID]
		if !ok {
			continue
		}
		if r.Metadata == nil {
			r.Metadata = make(map[string]interface{})
		}
		r.Metadata["vector_score"] = r.Score
		r.Score = sd.RerankerScore
		out = append(out, r)
	}
	return out
}

func capResults(results []vectorstore.SearchResult, topK int) []vectorstore.SearchResult {
	if len(results) <= topK {
		return results
	}
	return results[:topK]
}

// embedQueryWithRetry retries transient Embedding Gateway failures (network
// errors, 5xx, rate limiting) with exponential backoff. Invalid-input errors
// are not retried — a malformed query will not succeed on a second attempt.
func (s *Service) embedQueryWithRetry(ctx context.Context, query string) ([]float32, error) {
	base := backoff.NewExponentialBackOff()
	base.InitialInterval = 250 * time.Millisecond
	policy := backoff.WithContext(base, ctx)

	var vector []float32
	err := backoff.Retry(func() error {
		v, err := s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			var embErr *embeddings.EmbeddingError
			if errors.As(err, &embErr) && !embErr.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		vector = v
		return nil
	}, backoff.WithMaxRetries(policy, 2))

	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Unwrap()
		}
		return nil, err
	}
	return vector, nil
}
