// Package service provides business logic for the chat relay.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/store"
	"github.com/relaylabs/chatrelay/pkg/logger"
	"github.com/relaylabs/chatrelay/pkg/metrics"
)

// ErrInvalidInput is returned for empty or malformed request fields.
var ErrInvalidInput = errors.New("invalid input")

// SessionService hands out session identifiers keyed by display name.
type SessionService struct {
	store  store.Store
	logger *logger.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, log *logger.Logger) *SessionService {
	return &SessionService{
		store:  st,
		logger: log,
	}
}

// GetOrCreateUser returns the user for a display name, creating the user
// together with its empty history on first login. Repeated logins by the
// same trimmed name return the same user and never touch history.
func (s *SessionService) GetOrCreateUser(ctx context.Context, displayName string) (*model.User, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, fmt.Errorf("%w: username must not be empty", ErrInvalidInput)
	}

	user, err := s.store.FindUserByName(ctx, name)
	if err == nil {
		metrics.LoginsTotal.WithLabelValues("existing").Inc()
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user = &model.User{
		ID:          uuid.NewString(),
		DisplayName: name,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateUserWithHistory(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost the race to a concurrent login by the same name.
			return s.store.FindUserByName(ctx, name)
		}
		return nil, err
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	metrics.LoginsTotal.WithLabelValues("created").Inc()

	return user, nil
}
