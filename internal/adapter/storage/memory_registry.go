package storage

import "sync"

// SubscriberSet is the in-process subscriber registry. It starts empty and
// only grows; nothing is persisted.
type SubscriberSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewSubscriberSet() *SubscriberSet {
	return &SubscriberSet{ids: make(map[string]struct{})}
}

func (s *SubscriberSet) Add(recipientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[recipientID]; ok {
		return false
	}
	s.ids[recipientID] = struct{}{}
	return true
}

func (s *SubscriberSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

func (s *SubscriberSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
