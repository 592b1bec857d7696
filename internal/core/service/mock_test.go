package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rl1809/medkit/internal/core/domain"
)

// Mock RecordRepository
type mockRecordRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]domain.Record
	failAll error
	writes  int
}

func newMockRecordRepo(records ...domain.Record) *mockRecordRepo {
	m := &mockRecordRepo{records: make(map[int64]domain.Record)}
	for _, r := range records {
		m.nextID++
		if r.ID == 0 {
			r.ID = m.nextID
		}
		m.records[r.ID] = r
		if r.ID > m.nextID {
			m.nextID = r.ID
		}
	}
	return m
}

func (m *mockRecordRepo) CreateRecord(ctx context.Context, record domain.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return 0, m.failAll
	}
	m.nextID++
	record.ID = m.nextID
	m.records[record.ID] = record
	m.writes++
	return record.ID, nil
}

func (m *mockRecordRepo) lookup(id int64, ownerID string) (domain.Record, bool) {
	r, ok := m.records[id]
	if !ok || (ownerID != "" && r.OwnerID != ownerID) {
		return domain.Record{}, false
	}
	return r, true
}

func (m *mockRecordRepo) GetRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookup(id, ownerID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockRecordRepo) UpdateRecord(ctx context.Context, id int64, ownerID string, update domain.RecordUpdate) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	r, ok := m.lookup(id, ownerID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.Quantity = update.Quantity
	r.Expiration = update.Expiration
	m.records[id] = r
	m.writes++
	return &r, nil
}

func (m *mockRecordRepo) DeleteRecord(ctx context.Context, id int64, ownerID string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	r, ok := m.lookup(id, ownerID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.records, id)
	m.writes++
	return &r, nil
}

func (m *mockRecordRepo) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	var out []domain.Record
	for _, r := range m.records {
		if filter.OwnerID != "" && r.OwnerID != filter.OwnerID {
			continue
		}
		if !filter.ExpiresFrom.IsZero() && r.Expiration.Before(filter.ExpiresFrom) {
			continue
		}
		if !filter.ExpiresTo.IsZero() && r.Expiration.After(filter.ExpiresTo) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.OrderByExpires && !out[i].Expiration.Equal(out[j].Expiration) {
			return out[i].Expiration.Before(out[j].Expiration)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockRecordRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockRecordRepo) snapshot() map[int64]domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]domain.Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

// Mock SessionRepository
type mockSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]domain.DialogSession
	deleteErr error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.DialogSession)}
}

func (m *mockSessionRepo) GetSession(ctx context.Context, userID string) (*domain.DialogSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockSessionRepo) SaveSession(ctx context.Context, session domain.DialogSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = session
	return nil
}

func (m *mockSessionRepo) DeleteSession(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, userID)
	return nil
}

func (m *mockSessionRepo) stage(userID string) domain.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return domain.StageIdle
	}
	return s.Stage
}

// Mock SubscriberRegistry
type mockRegistry struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newMockRegistry(ids ...string) *mockRegistry {
	r := &mockRegistry{ids: make(map[string]struct{})}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

func (r *mockRegistry) Add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

func (r *mockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *mockRegistry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Mock Transport
type mockTransport struct {
	mu     sync.Mutex
	fail   map[string]bool
	sent   map[string][]string
	called int
}

var errDeliveryFailed = errors.New("delivery failed")

func newMockTransport(failing ...string) *mockTransport {
	t := &mockTransport{fail: make(map[string]bool), sent: make(map[string][]string)}
	for _, id := range failing {
		t.fail[id] = true
	}
	return t
}

func (t *mockTransport) Send(ctx context.Context, recipientID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.called++
	if t.fail[recipientID] {
		return errDeliveryFailed
	}
	t.sent[recipientID] = append(t.sent[recipientID], text)
	return nil
}

// countingNotifier records every dispatch.
type countingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *countingNotifier) Dispatch(ctx context.Context, text string) DispatchReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return DispatchReport{Attempted: 1, Delivered: 1}
}
