package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Message represents a persisted direct message.
type Message struct {
	ID          int64
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
	Delivered   bool
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets msg.ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// MarkDelivered flags a stored message as delivered to at least one
	// recipient connection.
	MarkDelivered(ctx context.Context, id int64) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)
}

// Store is a MessageStore backed by a database connection.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
