package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bittu292021/chatbox/internal/store"
	"github.com/bittu292021/chatbox/internal/store/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", migrations.ApplySQLite)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &store.Message{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "hello",
		CreatedAt:   created,
	}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if msg.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.SenderID != "alice" || got.RecipientID != "bob" || got.Body != "hello" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Delivered {
		t.Fatalf("new message must not be delivered")
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: got %v want %v", got.CreatedAt, created)
	}
}

func TestMarkDelivered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &store.Message{SenderID: "alice", RecipientID: "bob", Body: "hi", CreatedAt: time.Now().UTC()}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if err := s.MarkDelivered(ctx, msg.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if !got.Delivered {
		t.Fatalf("expected delivered flag")
	}
}

func TestMissingMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetMessage(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.MarkDelivered(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveMessageCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SaveMessage(ctx, &store.Message{SenderID: "a", RecipientID: "b", Body: "x", CreatedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
