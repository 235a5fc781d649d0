package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/metrics"
)

const (
	presenceQueueSize   = 256
	presenceSinkTimeout = 3 * time.Second
)

// PresenceSink receives presence transitions outside the process
// (message bus, profile mirror). Failures are logged and ignored.
type PresenceSink interface {
	PublishPresence(ctx context.Context, userID string, state PresenceState, at time.Time) error
}

type presenceUpdate struct {
	userID string
	state  PresenceState
	at     time.Time
}

// Broadcaster pushes presence transitions to every open connection and
// forwards them to the configured sinks.
type Broadcaster struct {
	conns *ConnSet
	sinks []PresenceSink
	queue chan presenceUpdate
	log   *zerolog.Logger
}

// NewBroadcaster creates a Broadcaster over the open connection set.
func NewBroadcaster(conns *ConnSet, logger *zerolog.Logger, sinks ...PresenceSink) *Broadcaster {
	return &Broadcaster{
		conns: conns,
		sinks: sinks,
		queue: make(chan presenceUpdate, presenceQueueSize),
		log:   logger,
	}
}

// Announce sends presence{userID,state} to all open connections. Delivery is
// best-effort: slow or closing connections miss the update.
func (b *Broadcaster) Announce(userID string, state PresenceState) {
	ev := &Event{Kind: EventPresence, User: userID, Presence: state}
	for _, c := range b.conns.All() {
		if !c.Send(ev) {
			metrics.DroppedEvents.Inc()
		}
	}
	metrics.PresenceTransitions.WithLabelValues(string(state)).Inc()
	b.log.Debug().Str("user_id", userID).Str("state", string(state)).Msg("presence announced")

	if len(b.sinks) == 0 {
		return
	}
	select {
	case b.queue <- presenceUpdate{userID: userID, state: state, at: time.Now()}:
	default:
		b.log.Warn().Str("user_id", userID).Msg("presence sink queue full, dropping update")
	}
}

// Run forwards queued transitions to the sinks until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-b.queue:
			for _, sink := range b.sinks {
				sctx, cancel := context.WithTimeout(ctx, presenceSinkTimeout)
				if err := sink.PublishPresence(sctx, u.userID, u.state, u.at); err != nil {
					b.log.Warn().Err(err).Str("user_id", u.userID).Msg("presence sink publish failed")
				}
				cancel()
			}
		}
	}
}
