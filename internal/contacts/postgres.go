package contacts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads contacts from PostgreSQL.
//
// Postgres is safe for concurrent use by multiple goroutines.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed contact store.
// A nil logger falls back to slog.Default.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// ContactsFor returns every contact the user has registered, ordered by name.
func (p *Postgres) ContactsFor(ctx context.Context, userID uuid.UUID) ([]Contact, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, allergies, dislikes, diets, updated_at
		 FROM contacts WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var list []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Allergies, &c.Dislikes, &c.Diets, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contact rows: %w", err)
	}

	p.logger.Debug("loaded contacts", "user_id", userID, "count", len(list))
	return list, nil
}
