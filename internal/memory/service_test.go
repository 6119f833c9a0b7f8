package memory_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/contextd/internal/memory"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewStore_RequiresDSN(t *testing.T) {
	_, err := memory.NewStore(context.Background(), memory.Config{}, zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "postgres DSN required")
}

// TestStore_Integration exercises Append/History/Clear against a live
// Postgres instance at postgres://localhost:5432/zantara_rag_test. It is
// skipped in short mode or when that database cannot be reached.
func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, err := memory.NewStore(context.Background(), memory.Config{
		DSN:      "postgres://localhost:5432/zantara_rag_test",
		MaxTurns: 10,
	}, zap.NewNop())
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	sessionID := "test-session"
	defer store.Clear(ctx, sessionID)

	_, err = store.Append(ctx, memory.AppendOptions{
		SessionID: sessionID,
		Role:      memory.RoleUser,
		Content:   "What is the KITAS fee?",
	})
	assert.NoError(t, err)

	_, err = store.Append(ctx, memory.AppendOptions{
		SessionID: sessionID,
		Role:      memory.RoleAssistant,
		Content:   "The standard KITAS fee is...",
		Citations: []string{"kb_visa#doc-42"},
	})
	assert.NoError(t, err)

	turns, err := store.History(ctx, memory.HistoryOptions{SessionID: sessionID})
	assert.NoError(t, err)
	if assert.Len(t, turns, 2) {
		assert.Equal(t, memory.RoleUser, turns[0].Role)
		assert.Equal(t, memory.RoleAssistant, turns[1].Role)
	}
}
