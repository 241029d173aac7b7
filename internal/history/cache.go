// Package history holds the per-scope in-memory view of the server's game
// ledger. Each scope is fetched and replaced independently; lists are never
// merged or re-sorted, the server's response order stands.
package history

import (
	"sync"

	"github.com/truenumber/truenumber-cli/internal/model"
)

// Cache stores one record list per scope plus an advisory loading flag used
// to disable re-triggering in the view layer.
type Cache struct {
	mu      sync.RWMutex
	records map[model.HistoryScope][]model.GameRecord
	loading map[model.HistoryScope]bool
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		records: make(map[model.HistoryScope][]model.GameRecord),
		loading: make(map[model.HistoryScope]bool),
	}
}

// Replace swaps in the full record list for a scope.
func (c *Cache) Replace(scope model.HistoryScope, records []model.GameRecord) {
	copied := make([]model.GameRecord, len(records))
	copy(copied, records)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[scope] = copied
}

// Records returns a copy of the cached list for a scope. An unfetched scope
// yields nil.
func (c *Cache) Records(scope model.HistoryScope) []model.GameRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stored, ok := c.records[scope]
	if !ok {
		return nil
	}
	copied := make([]model.GameRecord, len(stored))
	copy(copied, stored)
	return copied
}

// SetLoading sets the advisory loading flag for a scope.
func (c *Cache) SetLoading(scope model.HistoryScope, loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loading {
		c.loading[scope] = true
	} else {
		delete(c.loading, scope)
	}
}

// Loading reports whether a fetch for the scope is in flight.
func (c *Cache) Loading(scope model.HistoryScope) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading[scope]
}

// Drop discards the cached list for a scope.
func (c *Cache) Drop(scope model.HistoryScope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, scope)
}
