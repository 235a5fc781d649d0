// Package messaging publishes presence transitions to NATS so that other
// services can follow who is online without holding a WebSocket.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/core"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "presence"

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	ReconnectWait time.Duration
	MaxReconnects int // -1 for infinite
}

// PresenceMessage is the JSON payload published on <prefix>.<userID>.
type PresenceMessage struct {
	UserID string `json:"userId"`
	State  string `json:"state"`
	At     int64  `json:"at"` // unix millis
}

// Publisher is a core.PresenceSink backed by a NATS connection.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	log    *zerolog.Logger
}

var _ core.PresenceSink = (*Publisher)(nil)

// NewPublisher connects to NATS. It returns an error if the initial
// connection fails; later disconnects are retried by the client.
func NewPublisher(cfg Config, logger *zerolog.Logger) (*Publisher, error) {
	if cfg.Name == "" {
		cfg.Name = "chatbox"
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats connected")

	return &Publisher{conn: nc, prefix: cfg.SubjectPrefix, log: logger}, nil
}

// Subject returns the subject a user's transitions are published on.
func (p *Publisher) Subject(userID string) string {
	return p.prefix + "." + SubjectToken(userID)
}

// SubjectToken encodes userID as a single NATS subject token. Letters,
// digits, '-' and '_' pass through; every other byte, including '.', '*',
// '>' and whitespace, becomes %XX, so no user id can add a level or a
// wildcard. The userId field of the payload always carries the raw id.
func SubjectToken(userID string) string {
	if userID == "" {
		return "%"
	}
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(userID))
	for i := 0; i < len(userID); i++ {
		c := userID[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

// PublishPresence implements core.PresenceSink.
func (p *Publisher) PublishPresence(ctx context.Context, userID string, state core.PresenceState, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(PresenceMessage{
		UserID: userID,
		State:  string(state),
		At:     at.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}
	if err := p.conn.Publish(p.Subject(userID), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.Subject(userID), err)
	}
	return nil
}

// Close flushes pending publishes and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("nats connection drain")
	}
}
