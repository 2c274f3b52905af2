package model

import (
	"time"
)

// Turn is one user message paired with the assistant's reply to it. The
// JSON keys match the persisted history format.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"ai"`
}

// ChatRequest is the request to send a chat message.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse carries the assistant reply for a chat message.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// TurnEvent is published after each completed exchange for downstream
// consumers.
type TurnEvent struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	CreatedAt time.Time `json:"created_at"`
}
