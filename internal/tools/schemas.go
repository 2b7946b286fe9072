package tools

// SearchWinesInput defines input for the searchWines tool.
// All filters are optional and combine conjunctively.
type SearchWinesInput struct {
	Query     string `json:"query,omitempty" jsonschema_description:"Free text matched against wine name, producer and grapes"`
	Type      string `json:"type,omitempty" jsonschema_description:"Wine type filter: red, white, rose, sparkling, dessert or fortified"`
	Region    string `json:"region,omitempty" jsonschema_description:"Region or country substring, e.g. 'Piemonte' or 'France'"`
	MinRating int    `json:"min_rating,omitempty" jsonschema_description:"Only wines the user rated at least this score (1-5); unrated wines are excluded"`
	Limit     int    `json:"limit,omitempty" jsonschema_description:"Maximum results to return (1-25, default 5)"`
}

// WineDetailsInput defines input for the getWineDetails tool.
// Exactly one of wine_id and wine_name is needed; wine_id wins when both are set.
type WineDetailsInput struct {
	WineID   string `json:"wine_id,omitempty" jsonschema_description:"Catalog UUID of the wine, as returned by searchWines"`
	WineName string `json:"wine_name,omitempty" jsonschema_description:"Approximate wine name to resolve when the ID is unknown"`
}

// BottleLocationInput defines input for the getBottleLocation tool.
type BottleLocationInput struct {
	WineID   string `json:"wine_id,omitempty" jsonschema_description:"Catalog UUID of the wine, as returned by searchWines"`
	WineName string `json:"wine_name,omitempty" jsonschema_description:"Approximate wine name to resolve when the ID is unknown"`
}

// CellarStatsInput defines input for the getCellarStats tool (no input needed).
type CellarStatsInput struct{}

// FriendPreferencesInput defines input for the getFriendPreferences tool.
type FriendPreferencesInput struct {
	FriendName string `json:"friend_name" jsonschema_description:"Name of the registered friend, partial names are matched case-insensitively"`
}

// WineSummary is the compact wine shape returned by list-style tools.
type WineSummary struct {
	WineID   string `json:"wine_id"`
	Name     string `json:"name"`
	Producer string `json:"producer,omitempty"`
	Vintage  int    `json:"vintage,omitempty"`
	Type     string `json:"type"`
	Region   string `json:"region,omitempty"`
	Rating   *int   `json:"rating,omitempty"`
	Bottles  int    `json:"bottles"`
}

// SearchWinesOutput is the result of searchWines.
// TotalFound counts every match before the limit was applied.
type SearchWinesOutput struct {
	Wines      []WineSummary `json:"wines"`
	TotalFound int           `json:"total_found"`
}

// WineDetailsOutput is the result of getWineDetails.
type WineDetailsOutput struct {
	WineID   string   `json:"wine_id"`
	Name     string   `json:"name"`
	Producer string   `json:"producer,omitempty"`
	Vintage  int      `json:"vintage,omitempty"`
	Type     string   `json:"type"`
	Region   string   `json:"region,omitempty"`
	Country  string   `json:"country,omitempty"`
	Grapes   []string `json:"grapes,omitempty"`
	ABV      float64  `json:"abv,omitempty"`
	Rating   *int     `json:"rating,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Bottles  int      `json:"bottles"`
}

// LocationCount is one storage location with its available bottle count.
type LocationCount struct {
	Location string `json:"location"`
	Bottles  int    `json:"bottles"`
}

// BottleLocationOutput is the result of getBottleLocation.
type BottleLocationOutput struct {
	WineID       string          `json:"wine_id"`
	Name         string          `json:"name"`
	Locations    []LocationCount `json:"locations"`
	TotalBottles int             `json:"total_bottles"`
}

// CellarStatsOutput is the result of getCellarStats.
// TotalBottles, DistinctWines, ByType and ByRegion cover available bottles;
// ByStatus counts every holding, so consumed bottles stay visible there.
type CellarStatsOutput struct {
	TotalBottles  int            `json:"total_bottles"`
	DistinctWines int            `json:"distinct_wines"`
	ByStatus      map[string]int `json:"by_status,omitempty"`
	ByType        map[string]int `json:"by_type,omitempty"`
	ByRegion      map[string]int `json:"by_region,omitempty"`
	TopRated      []WineSummary  `json:"top_rated,omitempty"`
}

// FriendPreferencesOutput is the result of getFriendPreferences.
type FriendPreferencesOutput struct {
	Name      string   `json:"name"`
	Allergies []string `json:"allergies,omitempty"`
	Dislikes  []string `json:"dislikes,omitempty"`
	Diets     []string `json:"diets,omitempty"`
}
