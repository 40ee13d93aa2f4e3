package peers

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound reports a hotkey the store holds no record for.
var ErrNotFound = errors.New("node not found")

// Store persists verified announcements for the directory. Records are
// stored signed so readers can re-verify them without trusting the
// directory.
type Store interface {
	Save(ann *SignedAnnouncement) error
	Load(hotkey string) (*SignedAnnouncement, error)
	LoadAll() ([]*SignedAnnouncement, error)
	Delete(hotkey string) error
	Close() error
}

// MemoryStore keeps announcements in process memory. Safe for concurrent
// use.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*SignedAnnouncement
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*SignedAnnouncement),
	}
}

// Save stores the announcement keyed by its record's hotkey, replacing any
// previous one.
func (s *MemoryStore) Save(ann *SignedAnnouncement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[ann.Node.Hotkey] = ann
	return nil
}

// Load returns the announcement for one hotkey.
func (s *MemoryStore) Load(hotkey string) (*SignedAnnouncement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ann, ok := s.nodes[hotkey]
	if !ok {
		return nil, ErrNotFound
	}
	return ann, nil
}

// LoadAll returns every announcement, ordered by hotkey for stable
// listings.
func (s *MemoryStore) LoadAll() ([]*SignedAnnouncement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SignedAnnouncement, 0, len(s.nodes))
	for _, ann := range s.nodes {
		result = append(result, ann)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Node.Hotkey < result[j].Node.Hotkey
	})
	return result, nil
}

// Delete removes the record for one hotkey. Unknown hotkeys are a no-op.
func (s *MemoryStore) Delete(hotkey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, hotkey)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
