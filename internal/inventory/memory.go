package inventory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cellarist/cellarist/internal/wine"
)

// Memory is an in-memory inventory store for tests and local experiments.
// It mirrors the Postgres store's read surface and adds seed helpers.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu       sync.RWMutex
	wines    map[uuid.UUID]wine.Record
	owners   map[uuid.UUID]uuid.UUID // wine ID -> owning user
	holdings map[uuid.UUID][]wine.Holding
	ratings  map[uuid.UUID]map[uuid.UUID]wine.Rating
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		wines:    make(map[uuid.UUID]wine.Record),
		owners:   make(map[uuid.UUID]uuid.UUID),
		holdings: make(map[uuid.UUID][]wine.Holding),
		ratings:  make(map[uuid.UUID]map[uuid.UUID]wine.Rating),
	}
}

// AddWine seeds a catalog record for the user. A zero record ID is replaced
// with a fresh UUID; the stored record is returned either way.
func (m *Memory) AddWine(userID uuid.UUID, rec wine.Record) wine.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.wines[rec.ID] = rec
	m.owners[rec.ID] = userID
	return rec
}

// AddHolding seeds a holding for the user.
func (m *Memory) AddHolding(userID uuid.UUID, h wine.Holding) wine.Holding {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Status == "" {
		h.Status = wine.StatusAvailable
	}
	m.holdings[userID] = append(m.holdings[userID], h)
	return h
}

// SetRating seeds the user's rating for a wine, replacing any previous one.
func (m *Memory) SetRating(userID uuid.UUID, r wine.Rating) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ratings[userID] == nil {
		m.ratings[userID] = make(map[uuid.UUID]wine.Rating)
	}
	m.ratings[userID][r.WineID] = r
}

// WineSetFor returns the user's catalog ordered by name.
func (m *Memory) WineSetFor(_ context.Context, userID uuid.UUID) ([]wine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []wine.Record
	for id, owner := range m.owners {
		if owner == userID {
			records = append(records, m.wines[id])
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].ID.String() < records[j].ID.String()
	})
	return records, nil
}

// WineByID returns a catalog record or ErrWineNotFound.
func (m *Memory) WineByID(_ context.Context, id uuid.UUID) (wine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.wines[id]
	if !ok {
		return wine.Record{}, fmt.Errorf("wine %s: %w", id, ErrWineNotFound)
	}
	return rec, nil
}

// HoldingsFor returns the user's holdings in seed order.
func (m *Memory) HoldingsFor(_ context.Context, userID uuid.UUID) ([]wine.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.holdings[userID]), nil
}

// RatingFor returns the user's rating for one wine or ErrRatingNotFound.
func (m *Memory) RatingFor(_ context.Context, userID, wineID uuid.UUID) (wine.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.ratings[userID][wineID]
	if !ok {
		return wine.Rating{}, fmt.Errorf("wine %s: %w", wineID, ErrRatingNotFound)
	}
	return r, nil
}

// RatingsFor returns all of the user's ratings keyed by wine ID.
func (m *Memory) RatingsFor(_ context.Context, userID uuid.UUID) (map[uuid.UUID]wine.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[uuid.UUID]wine.Rating, len(m.ratings[userID]))
	for id, r := range m.ratings[userID] {
		out[id] = r
	}
	return out, nil
}
