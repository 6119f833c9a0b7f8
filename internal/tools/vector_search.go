package tools

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/contextd/internal/search"
)

// VectorSearchResult is one entry in a vector_search response, matching
// spec.md 4.E's {text, metadata, score, source_collection} shape.
type VectorSearchResult struct {
	Text             string                 `json:"text"`
	Metadata         map[string]interface{} `json:"metadata"`
	Score            float32                `json:"score"`
	SourceCollection string                 `json:"source_collection"`
}

// VectorSearchResponse is vector_search's return value.
type VectorSearchResponse struct {
	Results        []VectorSearchResult `json:"results"`
	CollectionUsed string                `json:"collection_used"`
}

// NewVectorSearchTool wraps the Hybrid Search Service as the orchestrator's
// vector_search tool.
func NewVectorSearchTool(svc *search.Service) *Tool {
	return &Tool{
		Name:        "vector_search",
		Description: "Search the knowledge base for passages relevant to a query, optionally scoped to one collection.",
		InputSchema: map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The natural-language question to search for.",
			},
			"collection": map[string]interface{}{
				"type":        "string",
				"description": "Force search to a specific collection instead of the routed default.",
			},
			"top_k": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results to return (default 5).",
			},
		},
		Required: []string{"query"},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			query, _ := args["query"].(string)
			collection, _ := args["collection"].(string)
			topK := 5
			if v, ok := args["top_k"]; ok {
				n, err := toInt(v)
				if err != nil {
					return nil, fmt.Errorf("top_k: %w", err)
				}
				topK = n
			}

			results, err := svc.Search(ctx, search.Request{
				Query:              query,
				TopK:               topK,
				CollectionOverride: collection,
			})
			if err != nil {
				return nil, fmt.Errorf("vector_search: %w", err)
			}

			resp := VectorSearchResponse{Results: make([]VectorSearchResult, len(results))}
			for i, r := range results {
				resp.Results[i] = VectorSearchResult{
					Text:             r.Content,
					Metadata:         r.Metadata,
					Score:            r.Score,
					SourceCollection: r.SourceCollection,
				}
				if resp.CollectionUsed == "" {
					resp.CollectionUsed = r.SourceCollection
				}
			}
			if resp.CollectionUsed == "" {
				resp.CollectionUsed = collection
			}
			return resp, nil
		},
	}
}

// toInt coerces a JSON-decoded numeric argument (float64 from
// encoding/json, or a plain int when constructed in-process) into an int.
func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
