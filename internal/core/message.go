package core

import (
	"time"

	"github.com/bittu292021/chatbox/internal/store"
)

// ChatMessage is the domain model for a direct chat message.
type ChatMessage struct {
	ID          int64
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
	Delivered   bool
}

func (m ChatMessage) toStore() *store.Message {
	return &store.Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		Delivered:   m.Delivered,
	}
}
