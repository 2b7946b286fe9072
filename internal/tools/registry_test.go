package tools

import (
	"context"
	"testing"
)

func TestRegistry_DispatchRoundTrip(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.h, nil)

	// The model sends arguments as loosely typed JSON maps.
	payload := r.Dispatch(context.Background(), f.user, ToolSearchWines, map[string]any{
		"type": "red", "min_rating": float64(4),
	})
	out, ok := payload.(SearchWinesOutput)
	if !ok {
		t.Fatalf("payload = %T (%v), want SearchWinesOutput", payload, payload)
	}
	if out.TotalFound != 1 {
		t.Errorf("TotalFound = %d, want 1", out.TotalFound)
	}
}

func TestRegistry_UnknownToolContained(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.h, nil)

	payload := r.Dispatch(context.Background(), f.user, "open_bottle", nil)
	terr, ok := payload.(*ToolError)
	if !ok || terr.ErrorType != ErrTypeUnknownTool {
		t.Errorf("payload = %v, want UnknownTool error", payload)
	}
	if r.Known("open_bottle") {
		t.Error("Known(open_bottle) = true, want false")
	}
	if !r.Known(ToolCellarStats) {
		t.Errorf("Known(%s) = false, want true", ToolCellarStats)
	}
}

func TestRegistry_MalformedArgumentsContained(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.h, nil)

	payload := r.Dispatch(context.Background(), f.user, ToolSearchWines, map[string]any{
		"min_rating": "four",
	})
	terr, ok := payload.(*ToolError)
	if !ok || terr.ErrorType != ErrTypeInvalidArguments {
		t.Errorf("payload = %v, want InvalidArguments error", payload)
	}
}

func TestRegistry_StructuredErrorPassthrough(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.h, nil)

	payload := r.Dispatch(context.Background(), f.user, ToolWineDetails, map[string]any{
		"wine_name": "zzzz",
	})
	terr, ok := payload.(*ToolError)
	if !ok || terr.ErrorType != ErrTypeWineNotFound {
		t.Errorf("payload = %v, want WineNotFound error", payload)
	}
}

func TestRegistry_NilInputUsesZeroValues(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.h, nil)

	payload := r.Dispatch(context.Background(), f.user, ToolCellarStats, nil)
	out, ok := payload.(CellarStatsOutput)
	if !ok {
		t.Fatalf("payload = %T, want CellarStatsOutput", payload)
	}
	if out.TotalBottles != 10 {
		t.Errorf("TotalBottles = %d, want 10", out.TotalBottles)
	}
}
