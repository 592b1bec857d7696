package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/medkit/internal/core/domain"
)

// MemorySessionStore is the single-process session store used when no Redis
// address is configured. Sessions idle longer than ttl are treated as gone.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	session  domain.DialogSession
	lastSeen time.Time
}

func NewMemorySessionStore(ttl time.Duration, now func() time.Time) *MemorySessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      now,
	}
}

func (m *MemorySessionStore) GetSession(ctx context.Context, userID string) (*domain.DialogSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	if m.now().Sub(entry.lastSeen) > m.ttl {
		delete(m.sessions, userID)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

func (m *MemorySessionStore) SaveSession(ctx context.Context, session domain.DialogSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = memorySession{session: session, lastSeen: m.now()}
	return nil
}

func (m *MemorySessionStore) DeleteSession(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemorySessionStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, entry := range m.sessions {
		if now.Sub(entry.lastSeen) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
