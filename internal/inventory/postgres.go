package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cellarist/cellarist/internal/wine"
)

// Postgres reads inventory data from PostgreSQL.
//
// Postgres is safe for concurrent use by multiple goroutines.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed inventory store.
// A nil logger falls back to slog.Default.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

const wineColumns = `id, name, producer, vintage, type, region, country, grapes, abv`

// WineSetFor returns every catalog record owned by the user, ordered by name.
func (p *Postgres) WineSetFor(ctx context.Context, userID uuid.UUID) ([]wine.Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+wineColumns+` FROM wines WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wines for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []wine.Record
	for rows.Next() {
		rec, err := scanWine(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wine rows: %w", err)
	}

	p.logger.Debug("loaded wine set", "user_id", userID, "count", len(records))
	return records, nil
}

// WineByID returns a single catalog record.
// Returns ErrWineNotFound when no record exists.
func (p *Postgres) WineByID(ctx context.Context, id uuid.UUID) (wine.Record, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+wineColumns+` FROM wines WHERE id = $1`, id)
	rec, err := scanWine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return wine.Record{}, fmt.Errorf("wine %s: %w", id, ErrWineNotFound)
	}
	if err != nil {
		return wine.Record{}, err
	}
	return rec, nil
}

// HoldingsFor returns every holding owned by the user, consumed ones included.
// Callers filter on status when they only care about bottles still in the rack.
func (p *Postgres) HoldingsFor(ctx context.Context, userID uuid.UUID) ([]wine.Holding, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, wine_id, quantity, location, status, updated_at
		 FROM holdings WHERE user_id = $1 ORDER BY location, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for user %s: %w", userID, err)
	}
	defer rows.Close()

	var holdings []wine.Holding
	for rows.Next() {
		var h wine.Holding
		if err := rows.Scan(&h.ID, &h.WineID, &h.Quantity, &h.Location, &h.Status, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read holding rows: %w", err)
	}

	p.logger.Debug("loaded holdings", "user_id", userID, "count", len(holdings))
	return holdings, nil
}

// RatingFor returns the user's rating for one wine.
// Returns ErrRatingNotFound when the wine is unrated.
func (p *Postgres) RatingFor(ctx context.Context, userID, wineID uuid.UUID) (wine.Rating, error) {
	var r wine.Rating
	err := p.pool.QueryRow(ctx,
		`SELECT wine_id, score, notes FROM ratings WHERE user_id = $1 AND wine_id = $2`,
		userID, wineID).Scan(&r.WineID, &r.Score, &r.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return wine.Rating{}, fmt.Errorf("wine %s: %w", wineID, ErrRatingNotFound)
	}
	if err != nil {
		return wine.Rating{}, fmt.Errorf("failed to query rating: %w", err)
	}
	return r, nil
}

// RatingsFor returns all of the user's ratings keyed by wine ID.
// Bulk loading avoids a per-wine round trip when filtering search results.
func (p *Postgres) RatingsFor(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]wine.Rating, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT wine_id, score, notes FROM ratings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings for user %s: %w", userID, err)
	}
	defer rows.Close()

	ratings := make(map[uuid.UUID]wine.Rating)
	for rows.Next() {
		var r wine.Rating
		if err := rows.Scan(&r.WineID, &r.Score, &r.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings[r.WineID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rating rows: %w", err)
	}
	return ratings, nil
}

// scanWine reads one wines row regardless of whether it came from Query or
// QueryRow.
func scanWine(row pgx.Row) (wine.Record, error) {
	var rec wine.Record
	err := row.Scan(&rec.ID, &rec.Name, &rec.Producer, &rec.Vintage, &rec.Type,
		&rec.Region, &rec.Country, &rec.Grapes, &rec.ABV)
	if errors.Is(err, pgx.ErrNoRows) {
		return wine.Record{}, err
	}
	if err != nil {
		return wine.Record{}, fmt.Errorf("failed to scan wine: %w", err)
	}
	return rec, nil
}
