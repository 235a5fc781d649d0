package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bittu292021/chatbox/internal/app"
	"github.com/bittu292021/chatbox/internal/auth"
	"github.com/bittu292021/chatbox/internal/config"
	"github.com/bittu292021/chatbox/internal/log"
	"github.com/bittu292021/chatbox/internal/store/migrations"
)

type rootOptions struct {
	configPath string
	overrides  config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "chatbox",
		Short:         "Realtime presence and direct message server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "path to config file (default ./config.yaml)")
	f.StringVar(&opts.overrides.Addr, "addr", "", "HTTP listen address")
	f.DurationVar(&opts.overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	f.DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	f.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.overrides.LogFormat, "log-format", "", "log format (console, json)")
	f.StringVar(&opts.overrides.Store.Driver, "store-driver", "", "message store driver (sqlite, postgres)")
	f.StringVar(&opts.overrides.Store.DSN, "store-dsn", "", "message store DSN")
	f.StringVar(&opts.overrides.Auth.JWTSecret, "jwt-secret", "", "HS256 secret; empty trusts the bind user field")
	f.StringVar(&opts.overrides.NATS.URL, "nats-url", "", "publish presence to this NATS server")
	f.StringVar(&opts.overrides.Redis.Addr, "redis-addr", "", "mirror presence to this Redis server")

	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newTokenCmd(opts))
	return root
}

// load resolves configuration: defaults < file < env < flags.
func (o *rootOptions) load() (config.Config, *zerolog.Logger, error) {
	// stdout is reserved for command output such as minted tokens
	bootstrap := log.NewWithWriter(os.Stderr, "info", "console")

	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return cfg, nil, err
	}
	cfg.UpdateFrom(o.overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := log.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the message store schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(*cobra.Command, []string) error {
				cfg, logger, err := opts.load()
				if err != nil {
					return err
				}
				if err := migrations.Up(cfg.Store.Driver, cfg.Store.DSN); err != nil {
					return err
				}
				logger.Info().Str("driver", cfg.Store.Driver).Msg("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE: func(*cobra.Command, []string) error {
				cfg, logger, err := opts.load()
				if err != nil {
					return err
				}
				if err := migrations.Down(cfg.Store.Driver, cfg.Store.DSN); err != nil {
					return err
				}
				logger.Info().Str("driver", cfg.Store.Driver).Msg("migrations rolled back")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := opts.load()
				if err != nil {
					return err
				}
				v, dirty, err := migrations.Version(cfg.Store.Driver, cfg.Store.DSN)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var user, name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bind token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			token, err := auth.GenerateToken(app.JWTConfig(&cfg), user, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to put in the token subject")
	cmd.Flags().StringVar(&name, "name", "", "optional display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
