package search

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"go.uber.org/zap"
)

// fanOut queries each target collection concurrently with a per-collection
// deadline, and degrades gracefully: a collection that errors or times out
// is logged and dropped rather than failing the whole search.
func fanOut(ctx context.Context, store vectorstore.Store, targets []string, vector []float32, k int, filterFor func(collection string) map[string]interface{}, timeout time.Duration, logger *zap.Logger) []vectorstore.SearchResult {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []vectorstore.SearchResult
	)

	for _, target := range targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()

			collCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var filter map[string]interface{}
			if filterFor != nil {
				filter = filterFor(target)
			}

			res, err := store.SearchVectorInCollection(collCtx, target, vector, k, filter)
			if err != nil {
				logger.Warn("search: collection fanout failed, degrading",
					zap.String("collection", target),
					zap.Error(err))
				return
			}

			mu.Lock()
			results = append(results, res...)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}
