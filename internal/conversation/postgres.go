package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores conversations and turns in PostgreSQL.
// Turn content is a JSONB column holding the serialized message parts.
//
// Postgres is safe for concurrent use by multiple goroutines.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed conversation store.
// A nil logger falls back to slog.Default.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// Create starts a new conversation for the user.
func (p *Postgres) Create(ctx context.Context, userID uuid.UUID, title string) (*Conversation, error) {
	var c Conversation
	err := p.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, user_id, title)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, title, turn_count, created_at, updated_at`,
		uuid.New(), userID, title).
		Scan(&c.ID, &c.UserID, &c.Title, &c.TurnCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	p.logger.Debug("created conversation", "id", c.ID, "user_id", userID)
	return &c, nil
}

// Get retrieves a conversation by ID. Returns ErrNotFound when absent.
func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, title, turn_count, created_at, updated_at
		 FROM conversations WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Title, &c.TurnCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &c, nil
}

// List returns the user's conversations ordered by most recent activity.
func (p *Postgres) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, title, turn_count, created_at, updated_at
		 FROM conversations WHERE user_id = $1
		 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var list []*Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.TurnCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversation rows: %w", err)
	}
	return list, nil
}

// Delete removes a conversation and its turns (CASCADE).
func (p *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	p.logger.Debug("deleted conversation", "id", id)
	return nil
}

// LoadRecent returns the last n turns in chronological order.
func (p *Postgres) LoadRecent(ctx context.Context, conversationID uuid.UUID, n int) ([]Turn, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, seq, created_at
		 FROM conversation_turns WHERE conversation_id = $1
		 ORDER BY seq DESC LIMIT $2`, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t   Turn
			raw []byte
		)
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &raw, &t.Seq, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if err := json.Unmarshal(raw, &t.Content); err != nil {
			// A malformed row must not sink the whole conversation.
			p.logger.Warn("skipping turn with malformed content", "turn_id", t.ID, "error", err)
			continue
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turn rows: %w", err)
	}

	// Rows arrive newest first; callers want chronological order.
	slices.Reverse(turns)
	return turns, nil
}

// AppendTurns atomically appends turns to a conversation.
//
// The conversation row is locked for the duration of the transaction, so
// sequence numbers are contiguous even under concurrent appends. Either all
// turns land or none do.
func (p *Postgres) AppendTurns(ctx context.Context, conversationID uuid.UUID, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for i, t := range turns {
		if slices.Contains(t.Content, (*ai.Part)(nil)) {
			return fmt.Errorf("turn %d has nil content part", i)
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			p.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, conversationID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock conversation: %w", err)
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM conversation_turns WHERE conversation_id = $1`,
		conversationID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("failed to read max sequence: %w", err)
	}

	for i, t := range turns {
		content, err := json.Marshal(t.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal turn %d content: %w", i, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_turns (id, conversation_id, role, content, seq)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), conversationID, t.Role, content, maxSeq+i+1); err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET turn_count = $2, updated_at = now() WHERE id = $1`,
		conversationID, maxSeq+len(turns)); err != nil {
		return fmt.Errorf("failed to update conversation metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	p.logger.Debug("appended turns", "conversation_id", conversationID, "count", len(turns))
	return nil
}
