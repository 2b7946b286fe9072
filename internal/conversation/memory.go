package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory conversation store for tests.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*Conversation
	turns         map[uuid.UUID][]Turn

	// FailAppends forces AppendTurns to fail, for exercising persistence
	// degradation paths.
	FailAppends bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[uuid.UUID]*Conversation),
		turns:         make(map[uuid.UUID][]Turn),
	}
}

// Create starts a new conversation for the user.
func (m *Memory) Create(_ context.Context, userID uuid.UUID, title string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c := &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[c.ID] = c
	return copyConv(c), nil
}

// Get retrieves a conversation by ID or ErrNotFound.
func (m *Memory) Get(_ context.Context, id uuid.UUID) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return copyConv(c), nil
}

// List returns the user's conversations ordered by most recent activity.
func (m *Memory) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var list []*Conversation
	for _, c := range m.conversations {
		if c.UserID == userID {
			list = append(list, copyConv(c))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes a conversation and its turns.
func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	delete(m.conversations, id)
	delete(m.turns, id)
	return nil
}

// LoadRecent returns the last n turns in chronological order.
func (m *Memory) LoadRecent(_ context.Context, conversationID uuid.UUID, n int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.turns[conversationID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]Turn, len(all))
	copy(out, all)
	return out, nil
}

// AppendTurns atomically appends turns to a conversation.
func (m *Memory) AppendTurns(_ context.Context, conversationID uuid.UUID, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppends {
		return fmt.Errorf("append disabled for test")
	}
	c, ok := m.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	seq := len(m.turns[conversationID])
	now := time.Now()
	for i, t := range turns {
		t.ID = uuid.New()
		t.ConversationID = conversationID
		t.Seq = seq + i + 1
		t.CreatedAt = now
		m.turns[conversationID] = append(m.turns[conversationID], t)
	}
	c.TurnCount = len(m.turns[conversationID])
	c.UpdatedAt = now
	return nil
}

func copyConv(c *Conversation) *Conversation {
	out := *c
	return &out
}
