// Package contacts stores the dining companions a user has registered,
// together with the dietary constraints that matter when suggesting wine.
package contacts

import (
	"time"

	"github.com/google/uuid"
)

// Contact is one registered friend with their declared constraints.
// All three constraint lists are free text entered by the owning user.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Allergies []string  `json:"allergies,omitempty"`
	Dislikes  []string  `json:"dislikes,omitempty"`
	Diets     []string  `json:"diets,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}
