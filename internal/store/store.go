// Package store defines the persistence ports for users and conversation
// histories.
package store

import (
	"context"
	"errors"

	"github.com/relaylabs/chatrelay/internal/model"
)

// MaxTurns is the history window: the number of most recent turns retained
// per user as conversational context.
const MaxTurns = 30

var (
	// ErrNotFound is returned when a referenced user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a display name is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the durable mapping from users to their conversation histories.
//
// AppendTurn is atomic per user: concurrent appends for the same user id
// are serialized by the implementation (row lock or keyed mutex), so no
// turn is ever lost to a concurrent writer. No lock spans multiple users.
type Store interface {
	// GetUser returns the user with the given id, ErrNotFound otherwise.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// FindUserByName returns the user with the given display name,
	// ErrNotFound otherwise.
	FindUserByName(ctx context.Context, displayName string) (*model.User, error)

	// CreateUserWithHistory creates the user record together with its
	// empty conversation history. Both exist afterwards, or neither does.
	// A taken display name yields ErrAlreadyExists.
	CreateUserWithHistory(ctx context.Context, user *model.User) error

	// LoadHistory returns the stored turns for a user in chronological
	// order. A missing history reads as empty; callers check user
	// existence separately.
	LoadHistory(ctx context.Context, userID string) ([]model.Turn, error)

	// AppendTurn appends one turn, truncates to the most recent MaxTurns
	// entries, and persists the result before returning. Unknown user
	// yields ErrNotFound.
	AppendTurn(ctx context.Context, userID string, turn model.Turn) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases storage resources.
	Close()
}
