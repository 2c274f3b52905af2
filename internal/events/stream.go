package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/relaylabs/chatrelay/internal/model"
)

const (
	// StreamName is the name of the turn events stream.
	StreamName = "CHAT_TURNS"

	// SubjectPrefix is the prefix for all turn subjects.
	SubjectPrefix = "turns"
)

// Publisher writes turn events to JetStream.
type Publisher struct {
	client *Client
}

// NewPublisher creates a new turn event publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the turn stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Completed chat exchanges",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a user's turn events.
func TurnSubject(userID string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, userID)
}

// PublishTurn publishes a completed exchange to JetStream.
func (p *Publisher) PublishTurn(ctx context.Context, event *model.TurnEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn event: %w", err)
	}

	ack, err := p.client.JetStream().Publish(ctx, TurnSubject(event.UserID), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn event: %w", err)
	}

	return ack.Sequence, nil
}
