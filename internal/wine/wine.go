// Package wine defines the domain types shared across the cellar assistant:
// catalog records, physical holdings, personal ratings, and the transient
// mention type used by entity resolution.
package wine

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type classifies a wine by style.
type Type string

// Valid wine types.
const (
	TypeRed       Type = "red"
	TypeWhite     Type = "white"
	TypeRose      Type = "rose"
	TypeSparkling Type = "sparkling"
	TypeDessert   Type = "dessert"
	TypeFortified Type = "fortified"
)

// ParseType normalizes a free-text type string to a Type.
// Returns "" (and false) for unknown values.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeRed:
		return TypeRed, true
	case TypeWhite:
		return TypeWhite, true
	case TypeRose, "rosé", "rosado", "rosato":
		return TypeRose, true
	case TypeSparkling:
		return TypeSparkling, true
	case TypeDessert:
		return TypeDessert, true
	case TypeFortified:
		return TypeFortified, true
	}
	return "", false
}

// Record is a canonical catalog entry. The ID is stable once created;
// records change only through explicit edits, never through matching.
type Record struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Producer string    `json:"producer,omitempty"`
	Vintage  int       `json:"vintage,omitempty"`
	Type     Type      `json:"type"`
	Region   string    `json:"region,omitempty"`
	Country  string    `json:"country,omitempty"`
	Grapes   []string  `json:"grapes,omitempty"`
	ABV      float64   `json:"abv,omitempty"`
}

// HoldingStatus tracks whether bottles are still in the cellar.
type HoldingStatus string

// Holding statuses.
const (
	StatusAvailable HoldingStatus = "available"
	StatusConsumed  HoldingStatus = "consumed"
)

// Holding is a quantity of a specific wine at a specific location.
// Quantity is always >= 0 and changes only via explicit consumption.
type Holding struct {
	ID        uuid.UUID     `json:"id"`
	WineID    uuid.UUID     `json:"wine_id"`
	Quantity  int           `json:"quantity"`
	Location  string        `json:"location,omitempty"`
	Status    HoldingStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at,omitzero"`
}

// Rating is a user's personal score and tasting notes for a wine.
type Rating struct {
	WineID uuid.UUID `json:"wine_id"`
	Score  int       `json:"score"` // 1..5
	Notes  string    `json:"notes,omitempty"`
}

// Mention is an untrusted, partial textual description of a wine awaiting
// resolution. It comes from label extraction, model-generated pairing
// suggestions, or tool arguments, and is never persisted as-is.
type Mention struct {
	Name     string
	Producer string
	Type     string // free text, parsed lazily
	Region   string
	Grapes   []string
}
