package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
)

// Registered tool names. The model sees these identifiers.
const (
	ToolSearchWines       = "search_wines"
	ToolWineDetails       = "get_wine_details"
	ToolBottleLocation    = "get_bottle_location"
	ToolCellarStats       = "get_cellar_stats"
	ToolFriendPreferences = "get_friend_preferences"
)

// toolNames contains all registered tool names.
// This is the single source of truth for tool names to avoid duplication.
var toolNames = []string{
	ToolSearchWines,
	ToolWineDetails,
	ToolBottleLocation,
	ToolCellarStats,
	ToolFriendPreferences,
}

// ToolNames returns all registered tool names.
// This allows other packages to get the tool list without duplication.
func ToolNames() []string {
	return toolNames
}

// RegisterTools registers the cellar tools with Genkit so their schemas are
// advertised to the model. The Genkit closures are thin adapters: they pull
// the authenticated user from context and delegate to Handler methods, which
// hold the testable business logic.
//
// The conversation loop dispatches tool requests itself through Registry;
// these definitions exist so Genkit can describe the tools on every
// generate call.
func RegisterTools(g *genkit.Genkit, h *Handler) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, ToolSearchWines,
			"Search the user's cellar for in-stock wines. Supports filtering by type, region, free-text query and minimum personal rating.",
			func(tctx *ai.ToolContext, input SearchWinesInput) (SearchWinesOutput, error) {
				userID, err := requireUser(tctx)
				if err != nil {
					return SearchWinesOutput{}, err
				}
				return h.SearchWines(tctx.Context, userID, input)
			}),
		genkit.DefineTool(g, ToolWineDetails,
			"Get the full catalog record for one wine: producer, vintage, grapes, region, the user's rating and tasting notes.",
			func(tctx *ai.ToolContext, input WineDetailsInput) (WineDetailsOutput, error) {
				userID, err := requireUser(tctx)
				if err != nil {
					return WineDetailsOutput{}, err
				}
				return h.GetWineDetails(tctx.Context, userID, input)
			}),
		genkit.DefineTool(g, ToolBottleLocation,
			"Find where a wine's bottles are stored in the cellar and how many are available at each location.",
			func(tctx *ai.ToolContext, input BottleLocationInput) (BottleLocationOutput, error) {
				userID, err := requireUser(tctx)
				if err != nil {
					return BottleLocationOutput{}, err
				}
				return h.GetBottleLocation(tctx.Context, userID, input)
			}),
		genkit.DefineTool(g, ToolCellarStats,
			"Summarize the user's cellar: total available bottles, distinct wines, and bottle counts by type and region.",
			func(tctx *ai.ToolContext, input CellarStatsInput) (CellarStatsOutput, error) {
				userID, err := requireUser(tctx)
				if err != nil {
					return CellarStatsOutput{}, err
				}
				return h.GetCellarStats(tctx.Context, userID, input)
			}),
		genkit.DefineTool(g, ToolFriendPreferences,
			"Look up a registered friend's allergies, dislikes and dietary restrictions before suggesting a wine for them.",
			func(tctx *ai.ToolContext, input FriendPreferencesInput) (FriendPreferencesOutput, error) {
				userID, err := requireUser(tctx)
				if err != nil {
					return FriendPreferencesOutput{}, err
				}
				return h.GetFriendPreferences(tctx.Context, userID, input)
			}),
	}
}

// requireUser extracts the authenticated user from the tool invocation
// context. Tools are unusable without one: every query is user-scoped.
func requireUser(tctx *ai.ToolContext) (userID uuid.UUID, err error) {
	userID, ok := UserIDFromContext(tctx.Context)
	if !ok {
		return uuid.Nil, fmt.Errorf("no authenticated user in tool context")
	}
	return userID, nil
}
