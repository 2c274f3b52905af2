package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateMessageContent validates chat message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateUserID checks the session identifier shape. Only emptiness is
// rejected here; whether the id is known is the store's call, so an id
// that never came from login yields not-found rather than bad-request.
func ValidateUserID(id string) error {
	if len(id) == 0 {
		return errors.New("user_id cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("user_id exceeds maximum length")
	}
	return nil
}

// ValidateUsername validates a login display name shape before trimming.
func ValidateUsername(name string) error {
	if len(name) > 256 {
		return errors.New("username exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("username must be valid UTF-8")
	}
	return nil
}
