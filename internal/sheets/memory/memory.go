package memory

import (
	"context"
	"fmt"
	"sync"

	"expensebot/internal/core"
	ports "expensebot/internal/sheets"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items map[string][]core.Record
	count int
}

func New() *Store {
	return &Store{items: make(map[string][]core.Record)}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, userID string, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = append(s.items[userID], r)
	s.count++
	return fmt.Sprintf("mem:%d", s.count), nil
}

// ReadAll returns a copy of the user's records.
func (s *Store) ReadAll(_ context.Context, userID string) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record(nil), s.items[userID]...), nil
}

// Users returns how many users have at least one record.
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
