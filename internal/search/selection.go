package search

import "github.com/spiffcs/repopin/internal/model"

// SelectionStore maps a repository key to the pinned repository. Keys are
// always the string form of the repository ID.
type SelectionStore struct {
	entries map[string]model.Repository
	order   []string // newest first
}

// NewSelectionStore returns an empty store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{
		entries: make(map[string]model.Repository),
	}
}

// Add pins r. It returns false and changes nothing if r is already pinned.
func (s *SelectionStore) Add(r model.Repository) bool {
	key := r.Key()
	if _, exists := s.entries[key]; exists {
		return false
	}
	s.entries[key] = r
	s.order = append([]string{key}, s.order...)
	return true
}

// Remove unpins the repository with the given key.
func (s *SelectionStore) Remove(key string) (model.Repository, bool) {
	r, exists := s.entries[key]
	if !exists {
		return model.Repository{}, false
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return r, true
}

// Has reports whether key is pinned.
func (s *SelectionStore) Has(key string) bool {
	_, exists := s.entries[key]
	return exists
}

// Get returns the pinned repository for key.
func (s *SelectionStore) Get(key string) (model.Repository, bool) {
	r, exists := s.entries[key]
	return r, exists
}

// Len returns the number of pinned repositories.
func (s *SelectionStore) Len() int {
	return len(s.entries)
}

// Items returns pinned repositories, most recently pinned first.
func (s *SelectionStore) Items() []model.Repository {
	out := make([]model.Repository, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.entries[key])
	}
	return out
}
