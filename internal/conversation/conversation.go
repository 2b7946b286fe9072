// Package conversation persists chat history as ordered turns.
//
// A conversation belongs to one user. Turns carry the full message content
// the model saw or produced, including tool requests and tool results, as a
// JSON-encoded slice of message parts. Sequence numbers are assigned inside
// the append transaction, so concurrent writers cannot interleave.
package conversation

import (
	"errors"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is one persisted message within a conversation.
// Role follows the model message roles: user, model, tool, system.
type Turn struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Role           string     `json:"role"`
	Content        []*ai.Part `json:"content"`
	Seq            int        `json:"seq"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Message converts the turn back to the model message shape.
func (t Turn) Message() *ai.Message {
	return &ai.Message{Role: ai.Role(t.Role), Content: t.Content}
}
