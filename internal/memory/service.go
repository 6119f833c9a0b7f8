package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store persists and retrieves conversation turns for the orchestrator.
//
// Grounded on the teacher's agentoven-style pgxpool usage (control-plane's
// pgvector store): a pooled connection, a migration-managed schema, and
// parameterized queries. Unlike that store, rows here are relational turns,
// not vectors — there is no similarity search, only session-scoped history
// reads bounded by MaxTurns.
type Store struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	maxTurns int
	timeout  time.Duration
}

// Config configures a Store.
type Config struct {
	DSN          string
	MaxTurns     int
	QueryTimeout time.Duration
}

// NewStore creates a pgx connection pool and verifies connectivity.
//
// Schema creation is handled by internal/migrate, not here; NewStore assumes
// the conversation_turns table already exists.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("memory: postgres DSN required")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 200
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 5 * time.Second
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("memory: connecting to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("memory: ping postgres: %w", err)
	}

	logger.Info("memory: postgres pool ready", zap.Int("max_turns", cfg.MaxTurns))

	return &Store{pool: pool, logger: logger, maxTurns: cfg.MaxTurns, timeout: cfg.QueryTimeout}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Append stores a new turn for a session.
func (s *Store) Append(ctx context.Context, opts AppendOptions) (*Turn, error) {
	if opts.SessionID == "" {
		return nil, fmt.Errorf("memory: session id required")
	}
	if opts.Role != RoleUser && opts.Role != RoleAssistant {
		return nil, fmt.Errorf("memory: invalid role %q", opts.Role)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	toolCallsJSON, err := json.Marshal(opts.ToolCalls)
	if err != nil {
		return nil, fmt.Errorf("memory: marshaling tool calls: %w", err)
	}
	citationsJSON, err := json.Marshal(opts.Citations)
	if err != nil {
		return nil, fmt.Errorf("memory: marshaling citations: %w", err)
	}

	turn := &Turn{
		SessionID: opts.SessionID,
		Role:      opts.Role,
		Content:   opts.Content,
		ToolCalls: opts.ToolCalls,
		Citations: opts.Citations,
	}

	const query = `
		INSERT INTO conversation_turns (session_id, role, content, tool_calls, citations, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`

	err = s.pool.QueryRow(ctx, query, opts.SessionID, string(opts.Role), opts.Content, toolCallsJSON, citationsJSON).
		Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("memory: appending turn: %w", err)
	}

	return turn, nil
}

// History returns the most recent turns for a session, oldest first,
// truncated to the store's MaxTurns window (or opts.Limit if smaller).
func (s *Store) History(ctx context.Context, opts HistoryOptions) ([]Turn, error) {
	if opts.SessionID == "" {
		return nil, fmt.Errorf("memory: session id required")
	}

	limit := opts.Limit
	if limit <= 0 || limit > s.maxTurns {
		limit = s.maxTurns
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		SELECT id, session_id, role, content, tool_calls, citations, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, opts.SessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: querying history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var role string
		var toolCallsJSON, citationsJSON []byte

		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Content, &toolCallsJSON, &citationsJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("memory: scanning turn: %w", err)
		}
		t.Role = Role(role)

		if len(toolCallsJSON) > 0 {
			if err := json.Unmarshal(toolCallsJSON, &t.ToolCalls); err != nil {
				return nil, fmt.Errorf("memory: unmarshaling tool calls: %w", err)
			}
		}
		if len(citationsJSON) > 0 {
			if err := json.Unmarshal(citationsJSON, &t.Citations); err != nil {
				return nil, fmt.Errorf("memory: unmarshaling citations: %w", err)
			}
		}

		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: reading history rows: %w", err)
	}

	// Rows came back newest-first (for the LIMIT to bound correctly); reverse
	// to the chronological order the orchestrator's prompt assembly expects.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// Clear deletes all turns for a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, "DELETE FROM conversation_turns WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("memory: clearing session %s: %w", sessionID, err)
	}
	return nil
}
