package search

import "github.com/spiffcs/repopin/internal/model"

// ResultCache holds the most recent search results, indexed by position.
type ResultCache struct {
	items []model.Repository
	limit int
}

// NewResultCache returns an empty cache keeping at most limit results.
func NewResultCache(limit int) *ResultCache {
	return &ResultCache{limit: limit}
}

// Replace swaps in a new result set, truncated to the cache limit.
func (c *ResultCache) Replace(items []model.Repository) {
	n := len(items)
	if n > c.limit {
		n = c.limit
	}
	c.items = make([]model.Repository, n)
	copy(c.items, items[:n])
}

// At returns the result at index.
func (c *ResultCache) At(index int) (model.Repository, bool) {
	if index < 0 || index >= len(c.items) {
		return model.Repository{}, false
	}
	return c.items[index], true
}

// Items returns a copy of the cached results.
func (c *ResultCache) Items() []model.Repository {
	out := make([]model.Repository, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	return len(c.items)
}

// Clear drops all results.
func (c *ResultCache) Clear() {
	c.items = nil
}

// Cleared reports whether the cache holds no result set at all, as opposed
// to an empty one returned by a search.
func (c *ResultCache) Cleared() bool {
	return c.items == nil
}
