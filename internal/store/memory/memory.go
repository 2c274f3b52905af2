// Package memory provides a map-backed Store for tests and
// dependency-free local runs.
package memory

import (
	"context"
	"sync"

	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/store"
)

// Store keeps users and histories in process memory. Histories are guarded
// by one mutex per user id so appends serialize per user without a global
// write lock.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*model.User // keyed by user id
	byName    map[string]string      // display name -> user id
	histories map[string][]model.Turn

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // per-user append locks
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		byName:    make(map[string]string),
		histories: make(map[string][]model.Turn),
		locks:     make(map[string]*sync.Mutex),
	}
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *user
	return &u, nil
}

// FindUserByName returns the user with the given display name.
func (s *Store) FindUserByName(ctx context.Context, displayName string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[displayName]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// CreateUserWithHistory creates the user and its empty history together.
func (s *Store) CreateUserWithHistory(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[user.DisplayName]; ok {
		return store.ErrAlreadyExists
	}

	u := *user
	s.users[u.ID] = &u
	s.byName[u.DisplayName] = u.ID
	s.histories[u.ID] = []model.Turn{}
	return nil
}

// LoadHistory returns the stored turns for a user in chronological order.
func (s *Store) LoadHistory(ctx context.Context, userID string) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[userID]
	out := make([]model.Turn, len(history))
	copy(out, history)
	return out, nil
}

// AppendTurn appends one turn and truncates to the most recent MaxTurns
// entries, serialized per user id.
func (s *Store) AppendTurn(ctx context.Context, userID string, turn model.Turn) error {
	// The per-user lock makes the read-modify-write atomic; the map
	// mutex is held only for the individual reads and writes.
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	_, exists := s.users[userID]
	prev := s.histories[userID]
	s.mu.RUnlock()

	if !exists {
		return store.ErrNotFound
	}

	history := make([]model.Turn, 0, len(prev)+1)
	history = append(history, prev...)
	history = append(history, turn)
	if len(history) > store.MaxTurns {
		history = history[len(history)-store.MaxTurns:]
	}

	s.mu.Lock()
	s.histories[userID] = history
	s.mu.Unlock()
	return nil
}

// Ping reports storage reachability; trivially healthy in memory.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close releases storage resources.
func (s *Store) Close() {}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
