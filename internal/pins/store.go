// Package pins persists the pinned repository list between runs.
package pins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/model"
)

// file is the on-disk layout of the pins file.
type file struct {
	SavedAt time.Time          `json:"savedAt"`
	Repos   []model.Repository `json:"repos"`
}

// Store manages persistence of pinned repositories
type Store struct {
	path  string
	repos []model.Repository
	mu    sync.RWMutex
}

// DefaultPath returns the pins file location under the user cache directory.
func DefaultPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "repopin", "pins.json"), nil
}

// NewStore opens the pins file at path, creating its directory. A missing
// or unreadable file starts an empty list.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create pins directory: %w", err)
	}

	s := &Store{path: path}
	if err := s.load(); err != nil {
		log.Debug("could not load pins, starting fresh", "path", path, "error", err)
	}
	return s, nil
}

// load reads the pinned repositories from disk
func (s *Store) load() error {
	repos, err := readPins(s.path)
	if err != nil {
		return err
	}
	s.repos = repos
	return nil
}

func readPins(path string) ([]model.Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Repos, nil
}

// Save records repos as the pinned list, most recent first. The file is
// re-read under an exclusive lock and only the pins added or removed since
// this store last synced are applied to it, so changes made by another
// instance in the meantime are kept.
func (s *Store) Save(repos []model.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock pins file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	disk, err := readPins(s.path)
	if err != nil {
		log.Debug("could not reload pins, overwriting", "path", s.path, "error", err)
		disk = s.repos
	}
	merged := mergePins(s.repos, repos, disk)

	data, err := json.MarshalIndent(file{SavedAt: time.Now().UTC(), Repos: merged}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write pins file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.repos = merged
	return nil
}

// mergePins applies the difference between base and want to disk. Pins new
// in want go first in want's order; pins dropped from want are removed;
// everything else keeps its position on disk, with want's copy of a
// repository replacing the stored one.
func mergePins(base, want, disk []model.Repository) []model.Repository {
	inBase := make(map[int64]bool, len(base))
	for _, r := range base {
		inBase[r.ID] = true
	}
	wanted := make(map[int64]model.Repository, len(want))
	for _, r := range want {
		wanted[r.ID] = r
	}

	merged := make([]model.Repository, 0, len(want)+len(disk))
	added := make(map[int64]bool)
	for _, r := range want {
		if !inBase[r.ID] {
			merged = append(merged, r)
			added[r.ID] = true
		}
	}
	for _, r := range disk {
		if added[r.ID] {
			continue
		}
		w, ok := wanted[r.ID]
		switch {
		case ok:
			merged = append(merged, w)
		case inBase[r.ID]:
			// removed here
		default:
			merged = append(merged, r)
		}
	}
	return merged
}

// List returns the pinned repositories, most recent first.
func (s *Store) List() []model.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Repository(nil), s.repos...)
}

// Remove unpins the repository with the given ID and saves.
func (s *Store) Remove(id int64) (bool, error) {
	repos := s.List()
	for i, r := range repos {
		if r.ID == id {
			return true, s.Save(append(repos[:i], repos[i+1:]...))
		}
	}
	return false, nil
}

// Clear unpins everything and saves.
func (s *Store) Clear() error {
	return s.Save(nil)
}

// Count returns the number of pinned repositories
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.repos)
}

// Path returns the pins file location.
func (s *Store) Path() string {
	return s.path
}
