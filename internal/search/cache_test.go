package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_StableAcrossFallbackOrder(t *testing.T) {
	k1 := Key("visa question", "kb_visa", []string{"kb_general", "kb_legal"}, "")
	k2 := Key("Visa Question", "kb_visa", []string{"kb_legal", "kb_general"}, "")
	assert.Equal(t, k1, k2)
}

func TestKey_DiffersOnTierFilter(t *testing.T) {
	k1 := Key("q", "kb_visa", nil, "A")
	k2 := Key("q", "kb_visa", nil, "B")
	assert.NotEqual(t, k1, k2)
}

func TestCache_GetOrCompute_CachesResult(t *testing.T) {
	c, err := NewCache(10, time.Minute)
	require.NoError(t, err)

	var calls int32
	compute := func(ctx context.Context) ([]vectorstore.SearchResult, error) {
		atomic.AddInt32(&calls, 1)
		return []vectorstore.SearchResult{{ID: "a"}}, nil
	}

	key := Key("q", "kb_visa", nil, "")
	r1, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	r2, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestCache_GetOrCompute_PropagatesError(t *testing.T) {
	c, err := NewCache(10, time.Minute)
	require.NoError(t, err)

	wantErr := errors.New("boom")
	_, err = c.GetOrCompute(context.Background(), "k", func(ctx context.Context) ([]vectorstore.SearchResult, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c, err := NewCache(10, 10*time.Millisecond)
	require.NoError(t, err)

	var calls int32
	compute := func(ctx context.Context) ([]vectorstore.SearchResult, error) {
		atomic.AddInt32(&calls, 1)
		return []vectorstore.SearchResult{{ID: "a"}}, nil
	}

	key := Key("q", "kb_visa", nil, "")
	_, err = c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
