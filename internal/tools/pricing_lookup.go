package tools

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
)

// NewPricingLookupTool builds the pricing_lookup tool: a structured lookup
// against the pricing collection, bypassing the full Hybrid Search Service
// pipeline (no rerank, no multi-collection fan-out — pricing entries are
// looked up, not searched for relevance).
func NewPricingLookupTool(store vectorstore.Store, embedder vectorstore.Embedder, pricingCollection string, topK int) *Tool {
	if topK <= 0 {
		topK = 10
	}
	return &Tool{
		Name:        "pricing_lookup",
		Description: "Look up structured pricing entries, optionally filtered to a specific service.",
		InputSchema: map[string]interface{}{
			"service_name": map[string]interface{}{
				"type":        "string",
				"description": "The service to look up pricing for (e.g. \"KITAS working permit\"). Omit to list all pricing entries.",
			},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			serviceName, _ := args["service_name"].(string)

			query := serviceName
			if query == "" {
				query = "pricing rate card"
			}
			vector, err := embedder.EmbedQuery(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("pricing_lookup: embedding query: %w", err)
			}

			var filter map[string]interface{}
			if serviceName != "" {
				filter = map[string]interface{}{"service_name": serviceName}
			}

			results, err := store.SearchVectorInCollection(ctx, pricingCollection, vector, topK, filter)
			if err != nil {
				return nil, fmt.Errorf("pricing_lookup: %w", err)
			}

			out := make([]VectorSearchResult, len(results))
			for i, r := range results {
				out[i] = VectorSearchResult{
					Text:             r.Content,
					Metadata:         r.Metadata,
					Score:            r.Score,
					SourceCollection: pricingCollection,
				}
			}
			return map[string]interface{}{"results": out}, nil
		},
	}
}
