package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cellarist/cellarist/internal/wine"
)

func TestMemory_WineSetScopedToUser(t *testing.T) {
	store := NewMemory()
	alice := uuid.New()
	bob := uuid.New()

	store.AddWine(alice, wine.Record{Name: "Barolo Francia", Type: wine.TypeRed})
	store.AddWine(alice, wine.Record{Name: "Chablis", Type: wine.TypeWhite})
	store.AddWine(bob, wine.Record{Name: "Rioja Reserva", Type: wine.TypeRed})

	records, err := store.WineSetFor(context.Background(), alice)
	if err != nil {
		t.Fatalf("WineSetFor: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Ordered by name.
	if records[0].Name != "Barolo Francia" || records[1].Name != "Chablis" {
		t.Errorf("unexpected order: %q, %q", records[0].Name, records[1].Name)
	}
}

func TestMemory_WineByIDNotFound(t *testing.T) {
	store := NewMemory()
	_, err := store.WineByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrWineNotFound) {
		t.Errorf("err = %v, want ErrWineNotFound", err)
	}
}

func TestMemory_RatingLifecycle(t *testing.T) {
	store := NewMemory()
	user := uuid.New()
	rec := store.AddWine(user, wine.Record{Name: "Taurasi", Type: wine.TypeRed})

	if _, err := store.RatingFor(context.Background(), user, rec.ID); !errors.Is(err, ErrRatingNotFound) {
		t.Fatalf("err = %v, want ErrRatingNotFound before rating", err)
	}

	store.SetRating(user, wine.Rating{WineID: rec.ID, Score: 4, Notes: "structured"})
	r, err := store.RatingFor(context.Background(), user, rec.ID)
	if err != nil {
		t.Fatalf("RatingFor: %v", err)
	}
	if r.Score != 4 {
		t.Errorf("score = %d, want 4", r.Score)
	}

	all, err := store.RatingsFor(context.Background(), user)
	if err != nil {
		t.Fatalf("RatingsFor: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d ratings, want 1", len(all))
	}
}

func TestMemory_HoldingsDefaultAvailable(t *testing.T) {
	store := NewMemory()
	user := uuid.New()
	rec := store.AddWine(user, wine.Record{Name: "Vouvray", Type: wine.TypeWhite})
	store.AddHolding(user, wine.Holding{WineID: rec.ID, Quantity: 3, Location: "Rack A"})

	holdings, err := store.HoldingsFor(context.Background(), user)
	if err != nil {
		t.Fatalf("HoldingsFor: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("got %d holdings, want 1", len(holdings))
	}
	if holdings[0].Status != wine.StatusAvailable {
		t.Errorf("status = %q, want %q", holdings[0].Status, wine.StatusAvailable)
	}
}
