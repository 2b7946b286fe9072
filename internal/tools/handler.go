// Package tools implements the read-only cellar tools exposed to the model
// and the registry that dispatches the model's tool requests.
//
// Every tool is scoped to the authenticated user: handlers receive the user
// ID explicitly and only touch that user's catalog, holdings, ratings and
// contacts. Tools never mutate inventory.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cellarist/cellarist/internal/contacts"
	"github.com/cellarist/cellarist/internal/match"
	"github.com/cellarist/cellarist/internal/wine"
)

// Search result bounds.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 25
)

// InventoryReader defines the inventory operations tools depend on.
// Following Go best practices: interfaces are defined by the consumer,
// not the provider.
type InventoryReader interface {
	WineSetFor(ctx context.Context, userID uuid.UUID) ([]wine.Record, error)
	HoldingsFor(ctx context.Context, userID uuid.UUID) ([]wine.Holding, error)
	RatingsFor(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]wine.Rating, error)
}

// ContactReader defines the contact operations tools depend on.
type ContactReader interface {
	ContactsFor(ctx context.Context, userID uuid.UUID) ([]contacts.Contact, error)
}

// Handler implements the cellar tool operations with explicit dependencies.
// Methods are independently testable without Genkit's closure overhead.
//
// Handler is safe for concurrent use by multiple goroutines.
type Handler struct {
	inventory InventoryReader
	contacts  ContactReader
	logger    *slog.Logger
}

// NewHandler creates a tool handler.
// A nil logger falls back to slog.Default.
func NewHandler(inv InventoryReader, con ContactReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inventory: inv, contacts: con, logger: logger}
}

// SearchWines filters the user's in-stock wines. Filters combine
// conjunctively; a min_rating filter excludes unrated wines.
func (h *Handler) SearchWines(ctx context.Context, userID uuid.UUID, input SearchWinesInput) (SearchWinesOutput, error) {
	if input.MinRating < 0 || input.MinRating > 5 {
		return SearchWinesOutput{}, invalidArgs(fmt.Sprintf("min_rating must be 1-5, got %d", input.MinRating))
	}
	limit := input.Limit
	switch {
	case limit < 0:
		return SearchWinesOutput{}, invalidArgs(fmt.Sprintf("limit must be positive, got %d", limit))
	case limit == 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	var typeFilter wine.Type
	if input.Type != "" {
		t, ok := wine.ParseType(input.Type)
		if !ok {
			return SearchWinesOutput{}, invalidArgs(fmt.Sprintf("unknown wine type %q", input.Type))
		}
		typeFilter = t
	}

	records, bottles, ratings, err := h.loadCellar(ctx, userID)
	if err != nil {
		return SearchWinesOutput{}, err
	}

	query := match.Fold(input.Query)
	region := match.Fold(input.Region)

	var matched []WineSummary
	for _, rec := range records {
		n := bottles[rec.ID]
		if n == 0 {
			continue
		}
		if typeFilter != "" && rec.Type != typeFilter {
			continue
		}
		if region != "" &&
			!strings.Contains(match.Fold(rec.Region), region) &&
			!strings.Contains(match.Fold(rec.Country), region) {
			continue
		}
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		rating, rated := ratings[rec.ID]
		if input.MinRating > 0 && (!rated || rating.Score < input.MinRating) {
			continue
		}
		matched = append(matched, summarize(rec, n, ratings))
	}

	// Rated wines first, best score leading; name breaks ties.
	sort.SliceStable(matched, func(i, j int) bool {
		ri, rj := matched[i].Rating, matched[j].Rating
		switch {
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		case ri != nil && rj != nil && *ri != *rj:
			return *ri > *rj
		}
		return matched[i].Name < matched[j].Name
	})

	out := SearchWinesOutput{TotalFound: len(matched), Wines: matched}
	if len(out.Wines) > limit {
		out.Wines = out.Wines[:limit]
	}
	h.logger.Debug("searchWines", "user_id", userID, "total", out.TotalFound, "returned", len(out.Wines))
	return out, nil
}

// GetWineDetails returns the full catalog record for one wine, with the
// user's rating and available bottle count.
func (h *Handler) GetWineDetails(ctx context.Context, userID uuid.UUID, input WineDetailsInput) (WineDetailsOutput, error) {
	records, bottles, ratings, err := h.loadCellar(ctx, userID)
	if err != nil {
		return WineDetailsOutput{}, err
	}
	rec, terr := resolveWine(records, input.WineID, input.WineName)
	if terr != nil {
		return WineDetailsOutput{}, terr
	}

	out := WineDetailsOutput{
		WineID:   rec.ID.String(),
		Name:     rec.Name,
		Producer: rec.Producer,
		Vintage:  rec.Vintage,
		Type:     string(rec.Type),
		Region:   rec.Region,
		Country:  rec.Country,
		Grapes:   rec.Grapes,
		ABV:      rec.ABV,
		Bottles:  bottles[rec.ID],
	}
	if r, ok := ratings[rec.ID]; ok {
		score := r.Score
		out.Rating = &score
		out.Notes = r.Notes
	}
	return out, nil
}

// GetBottleLocation reports where a wine's available bottles are stored.
func (h *Handler) GetBottleLocation(ctx context.Context, userID uuid.UUID, input BottleLocationInput) (BottleLocationOutput, error) {
	records, err := h.inventory.WineSetFor(ctx, userID)
	if err != nil {
		return BottleLocationOutput{}, fmt.Errorf("failed to load wine set: %w", err)
	}
	rec, terr := resolveWine(records, input.WineID, input.WineName)
	if terr != nil {
		return BottleLocationOutput{}, terr
	}

	holdings, err := h.inventory.HoldingsFor(ctx, userID)
	if err != nil {
		return BottleLocationOutput{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	byLocation := make(map[string]int)
	total := 0
	for _, hold := range holdings {
		if hold.WineID != rec.ID || hold.Status != wine.StatusAvailable || hold.Quantity == 0 {
			continue
		}
		loc := hold.Location
		if loc == "" {
			loc = "unspecified"
		}
		byLocation[loc] += hold.Quantity
		total += hold.Quantity
	}

	out := BottleLocationOutput{WineID: rec.ID.String(), Name: rec.Name, TotalBottles: total}
	for loc, n := range byLocation {
		out.Locations = append(out.Locations, LocationCount{Location: loc, Bottles: n})
	}
	sort.Slice(out.Locations, func(i, j int) bool {
		if out.Locations[i].Bottles != out.Locations[j].Bottles {
			return out.Locations[i].Bottles > out.Locations[j].Bottles
		}
		return out.Locations[i].Location < out.Locations[j].Location
	})
	return out, nil
}

// topRatedLimit caps the highlighted wines in cellar stats.
const topRatedLimit = 5

// GetCellarStats summarizes the user's cellar: available bottles by type and
// region, every holding by status, and the top rated wines still in stock.
func (h *Handler) GetCellarStats(ctx context.Context, userID uuid.UUID, _ CellarStatsInput) (CellarStatsOutput, error) {
	records, err := h.inventory.WineSetFor(ctx, userID)
	if err != nil {
		return CellarStatsOutput{}, fmt.Errorf("failed to load wine set: %w", err)
	}
	holdings, err := h.inventory.HoldingsFor(ctx, userID)
	if err != nil {
		return CellarStatsOutput{}, fmt.Errorf("failed to load holdings: %w", err)
	}
	ratings, err := h.inventory.RatingsFor(ctx, userID)
	if err != nil {
		return CellarStatsOutput{}, fmt.Errorf("failed to load ratings: %w", err)
	}

	out := CellarStatsOutput{
		ByStatus: make(map[string]int),
		ByType:   make(map[string]int),
		ByRegion: make(map[string]int),
	}
	bottles := make(map[uuid.UUID]int)
	for _, hold := range holdings {
		out.ByStatus[string(hold.Status)] += hold.Quantity
		if hold.Status == wine.StatusAvailable {
			bottles[hold.WineID] += hold.Quantity
		}
	}

	var topRated []WineSummary
	for _, rec := range records {
		n := bottles[rec.ID]
		if n == 0 {
			continue
		}
		out.TotalBottles += n
		out.DistinctWines++
		out.ByType[string(rec.Type)] += n
		region := rec.Region
		if region == "" {
			region = rec.Country
		}
		if region == "" {
			region = "unspecified"
		}
		out.ByRegion[region] += n
		if _, rated := ratings[rec.ID]; rated {
			topRated = append(topRated, summarize(rec, n, ratings))
		}
	}

	// Best score leading, name breaking ties, same order search uses.
	sort.SliceStable(topRated, func(i, j int) bool {
		if *topRated[i].Rating != *topRated[j].Rating {
			return *topRated[i].Rating > *topRated[j].Rating
		}
		return topRated[i].Name < topRated[j].Name
	})
	if len(topRated) > topRatedLimit {
		topRated = topRated[:topRatedLimit]
	}
	out.TopRated = topRated
	return out, nil
}

// GetFriendPreferences looks up a registered friend's dietary constraints.
func (h *Handler) GetFriendPreferences(ctx context.Context, userID uuid.UUID, input FriendPreferencesInput) (FriendPreferencesOutput, error) {
	name := match.Fold(input.FriendName)
	if name == "" {
		return FriendPreferencesOutput{}, invalidArgs("friend_name is required")
	}

	list, err := h.contacts.ContactsFor(ctx, userID)
	if err != nil {
		return FriendPreferencesOutput{}, fmt.Errorf("failed to load contacts: %w", err)
	}

	var partial []contacts.Contact
	for _, c := range list {
		folded := match.Fold(c.Name)
		if folded == name {
			return friendOutput(c), nil
		}
		if strings.Contains(folded, name) {
			partial = append(partial, c)
		}
	}
	switch len(partial) {
	case 0:
		return FriendPreferencesOutput{}, &ToolError{
			ErrorType: ErrTypeFriendNotFound,
			Message:   fmt.Sprintf("no registered friend matches %q", input.FriendName),
		}
	case 1:
		return friendOutput(partial[0]), nil
	}
	names := make([]string, len(partial))
	for i, c := range partial {
		names[i] = c.Name
	}
	return FriendPreferencesOutput{}, invalidArgs(
		fmt.Sprintf("friend name %q is ambiguous, matches: %s", input.FriendName, strings.Join(names, ", ")))
}

// loadCellar fetches the three per-user data sets most tools need and folds
// holdings down to available bottle counts per wine.
func (h *Handler) loadCellar(ctx context.Context, userID uuid.UUID) ([]wine.Record, map[uuid.UUID]int, map[uuid.UUID]wine.Rating, error) {
	records, err := h.inventory.WineSetFor(ctx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load wine set: %w", err)
	}
	holdings, err := h.inventory.HoldingsFor(ctx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	ratings, err := h.inventory.RatingsFor(ctx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	bottles := make(map[uuid.UUID]int)
	for _, hold := range holdings {
		if hold.Status == wine.StatusAvailable {
			bottles[hold.WineID] += hold.Quantity
		}
	}
	return records, bottles, ratings, nil
}

// resolveWine finds one record in the user's catalog by ID or, failing that,
// by fuzzy name resolution. Records outside the user's catalog are invisible.
func resolveWine(records []wine.Record, idStr, name string) (wine.Record, *ToolError) {
	if idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return wine.Record{}, invalidArgs(fmt.Sprintf("wine_id %q is not a valid UUID", idStr))
		}
		for _, rec := range records {
			if rec.ID == id {
				return rec, nil
			}
		}
		return wine.Record{}, &ToolError{
			ErrorType: ErrTypeWineNotFound,
			Message:   fmt.Sprintf("no wine with id %s in your cellar", id),
		}
	}

	if strings.TrimSpace(name) == "" {
		return wine.Record{}, invalidArgs("either wine_id or wine_name is required")
	}

	res := match.Resolve(wine.Mention{Name: name}, records)
	if res.Best != nil {
		return res.Best.Wine, nil
	}
	// A name-only mention tops out below the matcher's confidence bar, so a
	// lone or clearly leading alternative is still taken as the answer.
	// Ties stay ambiguous and are reported back with suggestions.
	alts := res.Alternatives
	if len(alts) == 1 || (len(alts) > 1 && alts[0].Score > alts[1].Score) {
		return alts[0].Wine, nil
	}
	msg := fmt.Sprintf("no wine matching %q in your cellar", name)
	if len(res.Alternatives) > 0 {
		n := min(len(res.Alternatives), 3)
		names := make([]string, n)
		for i := range n {
			names[i] = res.Alternatives[i].Wine.Name
		}
		msg += ", closest: " + strings.Join(names, ", ")
	}
	return wine.Record{}, &ToolError{ErrorType: ErrTypeWineNotFound, Message: msg}
}

// matchesQuery reports whether the folded free-text query hits the record's
// name, producer or any grape.
func matchesQuery(rec wine.Record, query string) bool {
	if strings.Contains(match.Fold(rec.Name), query) ||
		strings.Contains(match.Fold(rec.Producer), query) {
		return true
	}
	for _, g := range rec.Grapes {
		if strings.Contains(match.Fold(g), query) {
			return true
		}
	}
	return false
}

func summarize(rec wine.Record, bottles int, ratings map[uuid.UUID]wine.Rating) WineSummary {
	s := WineSummary{
		WineID:   rec.ID.String(),
		Name:     rec.Name,
		Producer: rec.Producer,
		Vintage:  rec.Vintage,
		Type:     string(rec.Type),
		Region:   rec.Region,
		Bottles:  bottles,
	}
	if r, ok := ratings[rec.ID]; ok {
		score := r.Score
		s.Rating = &score
	}
	return s
}

func friendOutput(c contacts.Contact) FriendPreferencesOutput {
	return FriendPreferencesOutput{
		Name:      c.Name,
		Allergies: c.Allergies,
		Dislikes:  c.Dislikes,
		Diets:     c.Diets,
	}
}
