package contacts

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory contact store for tests.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID][]Contact
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{contacts: make(map[uuid.UUID][]Contact)}
}

// Add seeds a contact for the user. A zero contact ID is replaced with a
// fresh UUID; the stored contact is returned either way.
func (m *Memory) Add(userID uuid.UUID, c Contact) Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.contacts[userID] = append(m.contacts[userID], c)
	return c
}

// ContactsFor returns the user's contacts ordered by name.
func (m *Memory) ContactsFor(_ context.Context, userID uuid.UUID) ([]Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]Contact, len(m.contacts[userID]))
	copy(list, m.contacts[userID])
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}
