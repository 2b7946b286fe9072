// Package inventory exposes read-only access to a user's wine catalog,
// physical holdings, and personal ratings. The conversational layer never
// mutates inventory; bottles change through the management endpoints only.
package inventory

import "errors"

// ErrWineNotFound is returned when a wine ID does not exist in the catalog.
var ErrWineNotFound = errors.New("wine not found")

// ErrRatingNotFound is returned when a user has not rated the given wine.
var ErrRatingNotFound = errors.New("rating not found")
