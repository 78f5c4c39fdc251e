package notify

import (
	"context"
	"errors"
)

var ErrDeliveryFailed = errors.New("notification delivery failed")

// Message is one notification payload.
type Message struct {
	Subject string
	Body    string
}

// Sink delivers a message to one or more subscribers with an
// at-least-once contract; callers tolerate duplicates, never silent
// loss.
type Sink interface {
	Send(ctx context.Context, subscribers []string, msg Message) error

	// Close releases resources
	Close() error
}
