package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "valid domain collection",
			input:     "kb_visa",
			wantError: false,
		},
		{
			name:      "valid general collection",
			input:     "kb_general",
			wantError: false,
		},
		{
			name:      "valid pricing collection",
			input:     "kb_pricing",
			wantError: false,
		},
		{
			name:      "empty name",
			input:     "",
			wantError: true,
		},
		{
			name:      "uppercase letters",
			input:     "Kb_Visa",
			wantError: true,
		},
		{
			name:      "special characters",
			input:     "kb-visa",
			wantError: true,
		},
		{
			name:      "too long",
			input:     "a123456789012345678901234567890123456789012345678901234567890123456789",
			wantError: true,
		},
		{
			name:      "path traversal attempt",
			input:     "../kb_visa",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vectorstore.ValidateCollectionName(tt.input)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQdrantConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    vectorstore.QdrantConfig
		wantError bool
	}{
		{
			name: "valid config",
			config: vectorstore.QdrantConfig{
				Host:           "localhost",
				Port:           6334,
				CollectionName: "kb_visa",
				VectorSize:     1536,
			},
			wantError: false,
		},
		{
			name: "missing host",
			config: vectorstore.QdrantConfig{
				Port:           6334,
				CollectionName: "kb_visa",
				VectorSize:     1536,
			},
			wantError: true,
		},
		{
			name: "invalid port",
			config: vectorstore.QdrantConfig{
				Host:           "localhost",
				Port:           0,
				CollectionName: "kb_visa",
				VectorSize:     1536,
			},
			wantError: true,
		},
		{
			name: "missing vector size",
			config: vectorstore.QdrantConfig{
				Host:           "localhost",
				Port:           6334,
				CollectionName: "kb_visa",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQdrantConfig_ApplyDefaults(t *testing.T) {
	config := vectorstore.QdrantConfig{}
	config.ApplyDefaults()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1000000000, int(config.RetryBackoff)) // 1 second in nanoseconds
	assert.Equal(t, 50*1024*1024, config.MaxMessageSize)
	assert.Equal(t, uint32(5), config.CircuitBreakerThreshold)
	assert.Equal(t, qdrant.Distance_Cosine, config.Distance)
	assert.Equal(t, "kb_general", config.CollectionName)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name          string
		code          codes.Code
		wantTransient bool
	}{
		{name: "unavailable is transient", code: codes.Unavailable, wantTransient: true},
		{name: "deadline exceeded is transient", code: codes.DeadlineExceeded, wantTransient: true},
		{name: "aborted is transient", code: codes.Aborted, wantTransient: true},
		{name: "resource exhausted is transient", code: codes.ResourceExhausted, wantTransient: true},
		{name: "invalid argument is not transient", code: codes.InvalidArgument, wantTransient: false},
		{name: "not found is not transient", code: codes.NotFound, wantTransient: false},
		{name: "permission denied is not transient", code: codes.PermissionDenied, wantTransient: false},
		{name: "unauthenticated is not transient", code: codes.Unauthenticated, wantTransient: false},
		{name: "unknown code defaults to not transient", code: codes.Unknown, wantTransient: false},
		{name: "canceled is not transient", code: codes.Canceled, wantTransient: false},
		{name: "already exists is not transient", code: codes.AlreadyExists, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := status.Error(tt.code, "test error")
			got := vectorstore.IsTransientError(err)
			assert.Equal(t, tt.wantTransient, got)
		})
	}

	t.Run("non-grpc error is not transient", func(t *testing.T) {
		err := errors.New("regular error")
		assert.False(t, vectorstore.IsTransientError(err))
	})

	t.Run("nil error is not transient", func(t *testing.T) {
		assert.False(t, vectorstore.IsTransientError(nil))
	})
}

// TestQdrantStore_Integration exercises a QdrantStore against a live Qdrant
// instance on localhost:6334. It is skipped unless that instance is reachable.
func TestQdrantStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	config := vectorstore.QdrantConfig{
		Host:           "localhost",
		Port:           6334,
		CollectionName: "test_integration",
		VectorSize:     10,
		UseTLS:         false,
	}

	embedder := &fakeEmbedder{dimension: 10}

	store, err := vectorstore.NewQdrantStore(config, embedder)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	defer store.Close()

	t.Run("collection lifecycle", func(t *testing.T) {
		collectionName := "test_lifecycle"

		exists, _ := store.CollectionExists(ctx, collectionName)
		if exists {
			_ = store.DeleteCollection(ctx, collectionName)
		}

		err = store.CreateCollection(ctx, collectionName, 10)
		require.NoError(t, err)

		exists, err = store.CollectionExists(ctx, collectionName)
		require.NoError(t, err)
		assert.True(t, exists)

		info, err := store.GetCollectionInfo(ctx, collectionName)
		require.NoError(t, err)
		assert.Equal(t, collectionName, info.Name)
		assert.Equal(t, 0, info.PointCount)

		collections, err := store.ListCollections(ctx)
		require.NoError(t, err)
		assert.Contains(t, collections, collectionName)

		err = store.DeleteCollection(ctx, collectionName)
		require.NoError(t, err)

		exists, err = store.CollectionExists(ctx, collectionName)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("document operations", func(t *testing.T) {
		collectionName := "test_documents"

		exists, _ := store.CollectionExists(ctx, collectionName)
		if exists {
			_ = store.DeleteCollection(ctx, collectionName)
		}
		err = store.CreateCollection(ctx, collectionName, 10)
		require.NoError(t, err)
		defer store.DeleteCollection(ctx, collectionName)

		docs := []vectorstore.Document{
			{
				ID:      "doc1",
				Content: "test document one",
				Metadata: map[string]interface{}{
					"owner": "alice",
					"type":  "article",
				},
				Collection: collectionName,
			},
			{
				ID:      "doc2",
				Content: "test document two",
				Metadata: map[string]interface{}{
					"owner": "bob",
					"type":  "article",
				},
				Collection: collectionName,
			},
		}

		ids, err := store.AddDocuments(ctx, docs)
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		info, err := store.GetCollectionInfo(ctx, collectionName)
		require.NoError(t, err)
		assert.Equal(t, 2, info.PointCount)

		vector, err := embedder.EmbedQuery(ctx, "test query")
		require.NoError(t, err)

		results, err := store.SearchVectorInCollection(ctx, collectionName, vector, 10, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		filteredResults, err := store.SearchVectorInCollection(ctx, collectionName, vector, 10, map[string]interface{}{
			"owner": "alice",
		})
		require.NoError(t, err)
		assert.Len(t, filteredResults, 1)
		assert.Equal(t, "alice", filteredResults[0].Metadata["owner"])

		err = store.DeleteDocumentsFromCollection(ctx, collectionName, []string{"doc1"})
		require.NoError(t, err)

		info, err = store.GetCollectionInfo(ctx, collectionName)
		require.NoError(t, err)
		assert.Equal(t, 1, info.PointCount)
	})

	t.Run("exact search", func(t *testing.T) {
		collectionName := "test_exact"

		exists, _ := store.CollectionExists(ctx, collectionName)
		if exists {
			_ = store.DeleteCollection(ctx, collectionName)
		}
		err = store.CreateCollection(ctx, collectionName, 10)
		require.NoError(t, err)
		defer store.DeleteCollection(ctx, collectionName)

		docs := []vectorstore.Document{
			{ID: "doc1", Content: "exact search test one", Collection: collectionName},
			{ID: "doc2", Content: "exact search test two", Collection: collectionName},
		}
		_, err = store.AddDocuments(ctx, docs)
		require.NoError(t, err)

		results, err := store.ExactSearch(ctx, collectionName, "search query", 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}
