// Package cache holds the small in-process caches owned by store adapters.
package cache

import (
	"log/slog"
	"time"

	applog "expensebot/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically evicts expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager. Call before StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				slog.Debug("Evicted expired cache entries", applog.FieldComponent, applog.ComponentCache, "count", n)
			}
			m.logStats()
		case <-m.stopCleanup:
			return
		}
	}
}

type statsReporter interface {
	Stats() Stats
	Size() int
}

func (m *Manager) logStats() {
	for i, c := range m.caches {
		r, ok := c.(statsReporter)
		if !ok {
			continue
		}
		st := r.Stats()
		slog.Debug("Cache stats", applog.FieldComponent, applog.ComponentCache,
			"cache", i,
			"size", r.Size(),
			"hits", st.Hits,
			"misses", st.Misses,
			"evictions", st.Evictions)
	}
}

// CleanNow runs one cleanup pass and returns how many entries were removed.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() error {
	if !m.started {
		return nil
	}
	close(m.stopCleanup)
	<-m.cleanupDone
	m.started = false
	return nil
}
