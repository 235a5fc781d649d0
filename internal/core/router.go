package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/metrics"
	"github.com/bittu292021/chatbox/internal/store"
)

// DefaultStoreTimeout bounds a single persistence call made while routing.
const DefaultStoreTimeout = 3 * time.Second

// Router validates, persists and fans out direct messages.
type Router struct {
	store     store.MessageStore
	registry  PresenceRegistry
	validator *bodyValidator
	senders   *keyedMutex
	timeout   time.Duration
	log       *zerolog.Logger
	now       func() time.Time
}

// NewRouter creates a Router backed by the given store.
func NewRouter(st store.MessageStore, registry PresenceRegistry, policy MessagePolicy, timeout time.Duration, logger *zerolog.Logger) *Router {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Router{
		store:     st,
		registry:  registry,
		validator: newBodyValidator(policy),
		senders:   newKeyedMutex(),
		timeout:   timeout,
		log:       logger,
		now:       time.Now,
	}
}

// Route stores a message from the connection's user to recipientID and
// pushes it to every live connection of the recipient. The message is
// persisted before anyone sees it; if persistence fails nothing is
// delivered and an *UnavailableError is returned. The originating
// connection always gets a message_sent echo on success.
//
// Calls from the same sender are serialized from persist through fan-out,
// so a recipient observes one sender's messages in call order.
func (r *Router) Route(ctx context.Context, from *Conn, recipientID, body string) (*ChatMessage, error) {
	started := time.Now()
	senderID := from.UserID()
	if senderID == "" {
		return nil, ErrNotBound
	}
	if recipientID == "" {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, ErrBadRequest
	}
	text, err := r.validator.clean(body)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	unlock := r.senders.Lock(senderID)
	defer unlock()

	msg := ChatMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        text,
		CreatedAt:   r.now().UTC(),
	}
	rec := msg.toStore()

	saveCtx, cancel := context.WithTimeout(ctx, r.timeout)
	err = r.store.SaveMessage(saveCtx, rec)
	cancel()
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("failed").Inc()
		r.log.Error().Err(err).
			Str("user_id", senderID).
			Str("recipient_id", recipientID).
			Msg("persist message failed")
		return nil, &UnavailableError{Err: err}
	}
	msg.ID = rec.ID

	delivered := msg
	delivered.Delivered = true
	ev := &Event{Kind: EventMessage, User: senderID, Message: delivered}

	sent := 0
	for _, c := range r.registry.Handles(recipientID) {
		if c.Send(ev) {
			sent++
		} else {
			metrics.DroppedEvents.Inc()
		}
	}

	if sent > 0 {
		msg.Delivered = true
		// The message already reached the recipient; a cancelled request
		// must not leave the stored flag behind.
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		if err := r.store.MarkDelivered(markCtx, msg.ID); err != nil {
			r.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("mark delivered failed")
		}
		cancel()
		metrics.MessagesTotal.WithLabelValues("delivered").Inc()
	} else {
		metrics.MessagesTotal.WithLabelValues("stored").Inc()
	}

	if !from.Send(&Event{Kind: EventMessageSent, User: senderID, Message: msg}) {
		metrics.DroppedEvents.Inc()
	}
	metrics.RouteLatency.Observe(time.Since(started).Seconds())

	r.log.Debug().
		Int64("message_id", msg.ID).
		Str("user_id", senderID).
		Str("recipient_id", recipientID).
		Int("connections", sent).
		Msg("message routed")
	return &msg, nil
}
