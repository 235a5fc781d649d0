package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/store"
)

// IdentityVerifier resolves the identity a client claims in its bind request.
// user is the claimed identity; token is the client's credential, if any.
type IdentityVerifier interface {
	VerifyIdentity(user, token string) (string, error)
}

// TrustedIdentity accepts the claimed user as is.
type TrustedIdentity struct{}

func (TrustedIdentity) VerifyIdentity(user, _ string) (string, error) {
	if user == "" {
		return "", ErrBadRequest
	}
	return user, nil
}

// Options configures a Hub.
type Options struct {
	Store          store.MessageStore
	Verifier       IdentityVerifier
	Sinks          []PresenceSink
	TypingTimeout  time.Duration
	StoreTimeout   time.Duration
	OutboundBuffer int
	Policy         MessagePolicy
	Logger         *zerolog.Logger
}

// Hub coordinates connections, presence, message routing and typing state.
type Hub struct {
	conns       *ConnSet
	registry    *Registry
	broadcaster *Broadcaster
	router      *Router
	typing      *TypingCoordinator
	lifecycle   *Lifecycle
	verifier    IdentityVerifier
	log         *zerolog.Logger
}

// NewHub creates a new hub instance.
func NewHub(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = TrustedIdentity{}
	}

	conns := NewConnSet()
	broadcaster := NewBroadcaster(conns, logger, opts.Sinks...)
	registry := NewRegistry(broadcaster)
	typing := NewTypingCoordinator(registry, opts.TypingTimeout, logger)

	return &Hub{
		conns:       conns,
		registry:    registry,
		broadcaster: broadcaster,
		router:      NewRouter(opts.Store, registry, opts.Policy, opts.StoreTimeout, logger),
		typing:      typing,
		lifecycle:   NewLifecycle(conns, registry, typing, opts.OutboundBuffer, logger),
		verifier:    verifier,
		log:         logger,
	}
}

// Run drives background work until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.broadcaster.Run(ctx)
	h.typing.Close()
}

// Open registers a new unbound connection.
func (h *Hub) Open() *Conn {
	return h.lifecycle.Open()
}

// Close closes the connection. Safe to call more than once.
func (h *Hub) Close(c *Conn) {
	h.lifecycle.Close(c)
}

// Handle processes a single command from c. Failures are reported to c as
// an error event and also returned to the caller.
func (h *Hub) Handle(ctx context.Context, c *Conn, cmd *Command) error {
	err := h.dispatch(ctx, c, cmd)
	if err != nil {
		h.sendError(c, err)
	}
	return err
}

func (h *Hub) dispatch(ctx context.Context, c *Conn, cmd *Command) error {
	if cmd == nil {
		return ErrBadRequest
	}
	if c.State() == ConnClosed {
		return ErrConnClosed
	}

	if cmd.Kind == CommandBind {
		userID, err := h.verifier.VerifyIdentity(cmd.User, cmd.Token)
		if err != nil {
			if errors.Is(err, ErrBadRequest) {
				return err
			}
			h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("identity verification failed")
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return h.lifecycle.Bind(c, userID)
	}

	if c.State() != ConnBound {
		return ErrNotBound
	}

	switch cmd.Kind {
	case CommandSendMessage:
		_, err := h.router.Route(ctx, c, cmd.RecipientID, cmd.Body)
		return err
	case CommandTypingStart:
		return h.typing.Start(c, cmd.RecipientID)
	case CommandTypingStop:
		if cmd.RecipientID == "" {
			return ErrBadRequest
		}
		h.typing.Stop(c.UserID(), cmd.RecipientID)
		return nil
	default:
		return coreError(ErrCodeUnsupportedType, "unsupported command")
	}
}

func (h *Hub) sendError(c *Conn, err error) {
	ce := ToCoreError(err)
	if ce.Code == ErrCodeInternal {
		h.log.Error().Err(err).Str("conn_id", c.ID).Msg("command failed")
	}
	c.Send(&Event{Kind: EventError, Error: ce})
}

// Registry exposes the connection registry for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	return h.conns.Count()
}

// Typing exposes the typing coordinator.
func (h *Hub) Typing() *TypingCoordinator {
	return h.typing
}
