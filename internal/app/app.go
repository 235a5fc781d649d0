package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/auth"
	"github.com/bittu292021/chatbox/internal/config"
	"github.com/bittu292021/chatbox/internal/core"
	"github.com/bittu292021/chatbox/internal/messaging"
	presenceredis "github.com/bittu292021/chatbox/internal/presence/redis"
	"github.com/bittu292021/chatbox/internal/store"
	"github.com/bittu292021/chatbox/internal/store/migrations"
	"github.com/bittu292021/chatbox/internal/store/postgres"
	"github.com/bittu292021/chatbox/internal/store/sqlite"
	transporthttp "github.com/bittu292021/chatbox/internal/transport/http"
)

const connectTimeout = 10 * time.Second

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	closers         []func()
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	sinks, err := a.presenceSinks(cfg)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	verifier := auth.NewVerifier(JWTConfig(cfg), logger)

	a.hub = core.NewHub(core.Options{
		Store:          st,
		Verifier:       verifier,
		Sinks:          sinks,
		TypingTimeout:  cfg.TypingTimeout,
		StoreTimeout:   cfg.Store.Timeout,
		OutboundBuffer: cfg.OutboundBuffer,
		Policy: core.MessagePolicy{
			MaxBytes:     cfg.MaxMessageBytes,
			MaxRunes:     cfg.MaxMessageRunes,
			RejectMarkup: cfg.RejectMarkup,
		},
		Logger: logger,
	})
	a.server = transporthttp.NewServer(a.hub, verifier, cfg, logger)

	return a, nil
}

// JWTConfig builds the token settings from configuration.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	}
}

// OpenStore applies pending migrations and opens the configured message store.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case migrations.DriverSQLite:
		// An in-memory database exists per handle, so migrate the handle itself.
		if cfg.DSN == ":memory:" {
			st, err := sqlite.NewWithSetup(cfg.DSN, migrations.ApplySQLite)
			if err != nil {
				return nil, fmt.Errorf("init store: %w", err)
			}
			logger.Info().Str("driver", cfg.Driver).Msg("in-memory store initialized")
			return st, nil
		}
		if err := migrations.Up(cfg.Driver, cfg.DSN); err != nil {
			return nil, err
		}
		st, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Str("db_path", cfg.DSN).Msg("database initialized")
		return st, nil

	case migrations.DriverPostgres:
		if err := migrations.Up(cfg.Driver, cfg.DSN); err != nil {
			return nil, err
		}
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		st, err := postgres.New(cctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("driver", cfg.Driver).Msg("database initialized")
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func (a *App) presenceSinks(cfg *config.Config) ([]core.PresenceSink, error) {
	var sinks []core.PresenceSink

	if cfg.NATS.URL != "" {
		pub, err := messaging.NewPublisher(messaging.Config{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, a.log)
		if err != nil {
			return nil, fmt.Errorf("init nats: %w", err)
		}
		sinks = append(sinks, pub)
		a.closers = append(a.closers, pub.Close)
	}

	if cfg.Redis.Addr != "" {
		mirror, err := presenceredis.NewMirror(cfg.Redis.Addr, cfg.Redis.PresenceTTL)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.log.Info().Str("addr", cfg.Redis.Addr).Msg("presence mirror enabled")
		sinks = append(sinks, mirror)
		a.closers = append(a.closers, func() {
			if err := mirror.Close(); err != nil {
				a.log.Warn().Err(err).Msg("failed to close redis client")
			}
		})
	}

	return sinks, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()
	defer func() {
		stopHub()
		<-hubDone
		a.cleanup()
	}()

	// WebSocket handlers run on hijacked connections that Shutdown does not
	// wait for; tying request contexts to ctx ends them on shutdown.
	a.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting chatbox server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
		a.store = nil
	}
}
