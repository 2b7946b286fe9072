package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/cellarist/cellarist/internal/contacts"
	"github.com/cellarist/cellarist/internal/inventory"
	"github.com/cellarist/cellarist/internal/wine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture wires a handler over seeded in-memory stores.
type fixture struct {
	h    *Handler
	user uuid.UUID

	barolo   wine.Record
	chianti  wine.Record
	cornas   wine.Record
	chablis  wine.Record
	riesling wine.Record
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inv := inventory.NewMemory()
	con := contacts.NewMemory()
	f := &fixture{user: uuid.New()}

	f.barolo = inv.AddWine(f.user, wine.Record{
		Name: "Barolo Francia", Producer: "Giacomo Conterno", Vintage: 2016,
		Type: wine.TypeRed, Region: "Piemonte", Country: "Italy", Grapes: []string{"Nebbiolo"},
	})
	f.chianti = inv.AddWine(f.user, wine.Record{
		Name: "Chianti Classico Riserva", Producer: "Felsina", Vintage: 2019,
		Type: wine.TypeRed, Region: "Tuscany", Country: "Italy", Grapes: []string{"Sangiovese"},
	})
	f.cornas = inv.AddWine(f.user, wine.Record{
		Name: "Cornas Chaillot", Producer: "Thierry Allemand", Vintage: 2018,
		Type: wine.TypeRed, Region: "Rhone", Country: "France", Grapes: []string{"Syrah"},
	})
	f.chablis = inv.AddWine(f.user, wine.Record{
		Name: "Chablis Premier Cru Vaillons", Producer: "Dauvissat", Vintage: 2021,
		Type: wine.TypeWhite, Region: "Burgundy", Country: "France", Grapes: []string{"Chardonnay"},
	})
	f.riesling = inv.AddWine(f.user, wine.Record{
		Name: "Riesling Kabinett", Producer: "JJ Prum", Vintage: 2020,
		Type: wine.TypeWhite, Region: "Mosel", Country: "Germany", Grapes: []string{"Riesling"},
	})

	inv.AddHolding(f.user, wine.Holding{WineID: f.barolo.ID, Quantity: 2, Location: "Rack A"})
	inv.AddHolding(f.user, wine.Holding{WineID: f.barolo.ID, Quantity: 1, Location: "Cellar Floor"})
	inv.AddHolding(f.user, wine.Holding{WineID: f.barolo.ID, Quantity: 1, Location: "Rack A", Status: wine.StatusConsumed})
	inv.AddHolding(f.user, wine.Holding{WineID: f.chianti.ID, Quantity: 1, Location: "Rack B"})
	inv.AddHolding(f.user, wine.Holding{WineID: f.cornas.ID, Quantity: 2, Location: "Rack B"})
	inv.AddHolding(f.user, wine.Holding{WineID: f.chablis.ID, Quantity: 1, Location: "Fridge"})
	inv.AddHolding(f.user, wine.Holding{WineID: f.riesling.ID, Quantity: 3, Location: "Fridge"})

	inv.SetRating(f.user, wine.Rating{WineID: f.barolo.ID, Score: 5, Notes: "tar and roses"})
	inv.SetRating(f.user, wine.Rating{WineID: f.chianti.ID, Score: 3})
	inv.SetRating(f.user, wine.Rating{WineID: f.chablis.ID, Score: 4})

	con.Add(f.user, contacts.Contact{
		Name: "Maya Chen", Allergies: []string{"shellfish"}, Dislikes: []string{"oaky chardonnay"},
	})
	con.Add(f.user, contacts.Contact{Name: "Maya Patel", Diets: []string{"vegetarian"}})

	f.h = NewHandler(inv, con, nil)
	return f
}

func TestSearchWines_TypeAndMinRating(t *testing.T) {
	f := newFixture(t)

	// Three reds in stock, rated 5, 3 and unrated. Only the 5 survives a
	// min_rating of 4; the unrated one must not sneak through.
	out, err := f.h.SearchWines(context.Background(), f.user, SearchWinesInput{Type: "red", MinRating: 4})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	if out.TotalFound != 1 || len(out.Wines) != 1 {
		t.Fatalf("got %d wines (total %d), want 1", len(out.Wines), out.TotalFound)
	}
	if out.Wines[0].WineID != f.barolo.ID.String() {
		t.Errorf("matched %q, want %q", out.Wines[0].Name, f.barolo.Name)
	}
}

func TestSearchWines_RatedSortBeforeUnrated(t *testing.T) {
	f := newFixture(t)

	out, err := f.h.SearchWines(context.Background(), f.user, SearchWinesInput{Type: "red"})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	want := []string{f.barolo.Name, f.chianti.Name, f.cornas.Name}
	if len(out.Wines) != len(want) {
		t.Fatalf("got %d wines, want %d", len(out.Wines), len(want))
	}
	for i, w := range want {
		if out.Wines[i].Name != w {
			t.Errorf("position %d = %q, want %q", i, out.Wines[i].Name, w)
		}
	}
}

func TestSearchWines_LimitKeepsTotal(t *testing.T) {
	f := newFixture(t)

	out, err := f.h.SearchWines(context.Background(), f.user, SearchWinesInput{Type: "red", Limit: 1})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	if len(out.Wines) != 1 {
		t.Errorf("got %d wines, want 1", len(out.Wines))
	}
	if out.TotalFound != 3 {
		t.Errorf("TotalFound = %d, want 3 before truncation", out.TotalFound)
	}
}

func TestSearchWines_GrapeQueryAndCountryRegion(t *testing.T) {
	f := newFixture(t)

	out, err := f.h.SearchWines(context.Background(), f.user, SearchWinesInput{Query: "nebbiolo"})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	if len(out.Wines) != 1 || out.Wines[0].WineID != f.barolo.ID.String() {
		t.Errorf("grape query matched %+v, want only barolo", out.Wines)
	}

	// Region filter falls through to country.
	out, err = f.h.SearchWines(context.Background(), f.user, SearchWinesInput{Region: "france"})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	if out.TotalFound != 2 {
		t.Errorf("region=france total = %d, want 2", out.TotalFound)
	}
}

func TestSearchWines_ExcludesOutOfStock(t *testing.T) {
	f := newFixture(t)
	inv := inventory.NewMemory()
	rec := inv.AddWine(f.user, wine.Record{Name: "Rioja Gran Reserva", Type: wine.TypeRed})
	inv.AddHolding(f.user, wine.Holding{WineID: rec.ID, Quantity: 1, Status: wine.StatusConsumed})
	h := NewHandler(inv, contacts.NewMemory(), nil)

	out, err := h.SearchWines(context.Background(), f.user, SearchWinesInput{})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	if out.TotalFound != 0 {
		t.Errorf("consumed-only wine surfaced: %+v", out.Wines)
	}
}

func TestSearchWines_InvalidArguments(t *testing.T) {
	f := newFixture(t)

	for name, input := range map[string]SearchWinesInput{
		"bad type":       {Type: "orange"},
		"bad min rating": {MinRating: 9},
		"negative limit": {Limit: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.h.SearchWines(context.Background(), f.user, input)
			var terr *ToolError
			if !errors.As(err, &terr) || terr.ErrorType != ErrTypeInvalidArguments {
				t.Errorf("err = %v, want InvalidArguments", err)
			}
		})
	}
}

func TestGetWineDetails_ByFuzzyName(t *testing.T) {
	f := newFixture(t)

	out, err := f.h.GetWineDetails(context.Background(), f.user, WineDetailsInput{WineName: "Barolo"})
	if err != nil {
		t.Fatalf("GetWineDetails: %v", err)
	}
	if out.WineID != f.barolo.ID.String() {
		t.Fatalf("resolved %q, want %q", out.Name, f.barolo.Name)
	}
	if out.Rating == nil || *out.Rating != 5 || out.Notes != "tar and roses" {
		t.Errorf("rating/notes = %v/%q, want 5/tar and roses", out.Rating, out.Notes)
	}
	if out.Bottles != 3 {
		t.Errorf("bottles = %d, want 3 available (consumed excluded)", out.Bottles)
	}
}

func TestGetWineDetails_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.h.GetWineDetails(context.Background(), f.user, WineDetailsInput{WineID: uuid.New().String()})
	var terr *ToolError
	if !errors.As(err, &terr) || terr.ErrorType != ErrTypeWineNotFound {
		t.Errorf("unknown id err = %v, want WineNotFound", err)
	}

	_, err = f.h.GetWineDetails(context.Background(), f.user, WineDetailsInput{WineID: "not-a-uuid"})
	if !errors.As(err, &terr) || terr.ErrorType != ErrTypeInvalidArguments {
		t.Errorf("bad uuid err = %v, want InvalidArguments", err)
	}

	_, err = f.h.GetWineDetails(context.Background(), f.user, WineDetailsInput{})
	if !errors.As(err, &terr) || terr.ErrorType != ErrTypeInvalidArguments {
		t.Errorf("empty input err = %v, want InvalidArguments", err)
	}
}

func TestGetBottleLocation_GroupsByLocation(t *testing.T) {
	f := newFixture(t)

	out, err := f.h.GetBottleLocation(context.Background(), f.user, BottleLocationInput{WineID: f.barolo.ID.String()})
	if err != nil {
		t.Fatalf("GetBottleLocation: %v", err)
	}
	if out.TotalBottles != 3 {
		t.Errorf("total = %d, want 3", out.TotalBottles)
	}
	want := []LocationCount{{Location: "Rack A", Bottles: 2}, {Location: "Cellar Floor", Bottles: 1}}
	if len(out.Locations) != len(want) {
		t.Fatalf("locations = %+v, want %+v", out.Locations, want)
	}
	for i := range want {
		if out.Locations[i] != want[i] {
			t.Errorf("location %d = %+v, want %+v", i, out.Locations[i], want[i])
		}
	}
}

func TestGetCellarStats(t *testing.T) {
	f := newFixture(t)

	out, err := f.h.GetCellarStats(context.Background(), f.user, CellarStatsInput{})
	if err != nil {
		t.Fatalf("GetCellarStats: %v", err)
	}
	if out.TotalBottles != 10 {
		t.Errorf("TotalBottles = %d, want 10", out.TotalBottles)
	}
	if out.DistinctWines != 5 {
		t.Errorf("DistinctWines = %d, want 5", out.DistinctWines)
	}
	if out.ByType["red"] != 6 || out.ByType["white"] != 4 {
		t.Errorf("ByType = %v, want red=6 white=4", out.ByType)
	}
	// Status counts cover every holding, so the drunk barolo stays visible.
	if out.ByStatus["available"] != 10 || out.ByStatus["consumed"] != 1 {
		t.Errorf("ByStatus = %v, want available=10 consumed=1", out.ByStatus)
	}
	want := []string{f.barolo.Name, f.chablis.Name, f.chianti.Name}
	if len(out.TopRated) != len(want) {
		t.Fatalf("TopRated has %d wines, want %d", len(out.TopRated), len(want))
	}
	for i, name := range want {
		if out.TopRated[i].Name != name {
			t.Errorf("TopRated[%d] = %q, want %q", i, out.TopRated[i].Name, name)
		}
	}
	if out.TopRated[0].Rating == nil || *out.TopRated[0].Rating != 5 {
		t.Errorf("TopRated[0].Rating = %v, want 5", out.TopRated[0].Rating)
	}
}

func TestGetCellarStats_TopRatedCappedAtFive(t *testing.T) {
	user := uuid.New()
	inv := inventory.NewMemory()
	for i := range 7 {
		rec := inv.AddWine(user, wine.Record{
			Name: string(rune('A'+i)) + " Cuvee", Type: wine.TypeRed,
		})
		inv.AddHolding(user, wine.Holding{WineID: rec.ID, Quantity: 1})
		inv.SetRating(user, wine.Rating{WineID: rec.ID, Score: 1 + i%5})
	}
	h := NewHandler(inv, contacts.NewMemory(), nil)

	out, err := h.GetCellarStats(context.Background(), user, CellarStatsInput{})
	if err != nil {
		t.Fatalf("GetCellarStats: %v", err)
	}
	if len(out.TopRated) != 5 {
		t.Fatalf("TopRated has %d wines, want 5", len(out.TopRated))
	}
	for i := 1; i < len(out.TopRated); i++ {
		prev, cur := *out.TopRated[i-1].Rating, *out.TopRated[i].Rating
		if prev < cur {
			t.Errorf("TopRated not sorted: %d before %d", prev, cur)
		}
		if prev == cur && out.TopRated[i-1].Name > out.TopRated[i].Name {
			t.Errorf("tie not broken by name: %q before %q", out.TopRated[i-1].Name, out.TopRated[i].Name)
		}
	}
}

func TestGetFriendPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.h.GetFriendPreferences(ctx, f.user, FriendPreferencesInput{FriendName: "maya chen"})
	if err != nil {
		t.Fatalf("exact lookup: %v", err)
	}
	if len(out.Allergies) != 1 || out.Allergies[0] != "shellfish" {
		t.Errorf("allergies = %v, want [shellfish]", out.Allergies)
	}

	out, err = f.h.GetFriendPreferences(ctx, f.user, FriendPreferencesInput{FriendName: "patel"})
	if err != nil {
		t.Fatalf("partial lookup: %v", err)
	}
	if out.Name != "Maya Patel" {
		t.Errorf("partial resolved %q, want Maya Patel", out.Name)
	}

	var terr *ToolError
	_, err = f.h.GetFriendPreferences(ctx, f.user, FriendPreferencesInput{FriendName: "maya"})
	if !errors.As(err, &terr) || terr.ErrorType != ErrTypeInvalidArguments {
		t.Errorf("ambiguous err = %v, want InvalidArguments", err)
	}

	_, err = f.h.GetFriendPreferences(ctx, f.user, FriendPreferencesInput{FriendName: "bob"})
	if !errors.As(err, &terr) || terr.ErrorType != ErrTypeFriendNotFound {
		t.Errorf("missing err = %v, want FriendNotFound", err)
	}
}

func TestTools_ScopedToUser(t *testing.T) {
	f := newFixture(t)

	stranger := uuid.New()
	out, err := f.h.SearchWines(context.Background(), stranger, SearchWinesInput{})
	if err != nil {
		t.Fatalf("SearchWines: %v", err)
	}
	if out.TotalFound != 0 {
		t.Errorf("stranger sees %d wines, want 0", out.TotalFound)
	}

	var terr *ToolError
	_, err = f.h.GetWineDetails(context.Background(), stranger, WineDetailsInput{WineID: f.barolo.ID.String()})
	if !errors.As(err, &terr) || terr.ErrorType != ErrTypeWineNotFound {
		t.Errorf("cross-user lookup err = %v, want WineNotFound", err)
	}
}
