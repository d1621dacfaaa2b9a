// Package session keeps one wizard per user session in memory.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"obesityrisk/wizard"
)

var ErrNotFound = errors.New("session not found")

type Factory func() *wizard.Wizard

// Entry is one session. Its wizard is only reachable through Do, which
// serializes requests from the same client.
type Entry struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	wizard *wizard.Wizard
}

func (e *Entry) Do(fn func(w *wizard.Wizard) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.wizard)
}

func (e *Entry) Snapshot() wizard.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wizard.Snapshot()
}

// Store bounds the number of live sessions and drops those idle for
// longer than the TTL.
type Store struct {
	cache     *expirable.LRU[string, *Entry]
	newWizard Factory
	logger    *zap.Logger
}

func NewStore(capacity int, ttl time.Duration, factory Factory, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{newWizard: factory, logger: logger}
	s.cache = expirable.NewLRU[string, *Entry](capacity, func(id string, _ *Entry) {
		s.logger.Debug("session evicted", zap.String("session_id", id))
	}, ttl)
	return s
}

func (s *Store) Create() *Entry {
	entry := &Entry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		wizard:    s.newWizard(),
	}
	s.cache.Add(entry.ID, entry)
	s.logger.Info("session created", zap.String("session_id", entry.ID), zap.Int("live", s.cache.Len()))
	return entry
}

// Get returns the session and restarts its idle timer.
func (s *Store) Get(id string) (*Entry, error) {
	entry, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.cache.Add(id, entry)
	return entry, nil
}

func (s *Store) Delete(id string) bool {
	return s.cache.Remove(id)
}

func (s *Store) Len() int {
	return s.cache.Len()
}
