// Package model defines data structures for the chat relay.
package model

import (
	"time"
)

// User represents a registered chat participant. Users are created on first
// login by display name and are never deleted or mutated afterwards.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginRequest is the request to log in by display name.
type LoginRequest struct {
	Username string `json:"username"`
}

// LoginResponse carries the opaque session identifier the client holds on
// to for subsequent chat requests.
type LoginResponse struct {
	UserID string `json:"user_id"`
}
