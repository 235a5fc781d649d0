package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Auth  AuthConfig  `mapstructure:"auth" yaml:"auth"`
	NATS  NATSConfig  `mapstructure:"nats" yaml:"nats"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`

	TypingTimeout     time.Duration `mapstructure:"typing_timeout" yaml:"typing_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout" yaml:"heartbeat_timeout"`
	OutboundBuffer    int           `mapstructure:"outbound_buffer" yaml:"outbound_buffer"`

	MaxMessageBytes int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MaxMessageRunes int `mapstructure:"max_message_runes" yaml:"max_message_runes"`

	// RejectMarkup refuses message bodies containing HTML tags.
	RejectMarkup bool `mapstructure:"reject_markup" yaml:"reject_markup"`

	// 0 disables per-connection rate limiting.
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// StoreConfig selects and configures the message store backend.
type StoreConfig struct {
	Driver  string        `mapstructure:"driver" yaml:"driver"` // sqlite | postgres
	DSN     string        `mapstructure:"dsn" yaml:"dsn"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AuthConfig configures identity verification on bind.
// An empty JWTSecret means the bind event's user field is trusted as is.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	Audience  string        `mapstructure:"audience" yaml:"audience"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// NATSConfig enables publishing presence transitions to NATS when URL is set.
type NATSConfig struct {
	URL           string `mapstructure:"url" yaml:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
}

// RedisConfig enables mirroring presence state to Redis when Addr is set.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" yaml:"addr"`
	PresenceTTL time.Duration `mapstructure:"presence_ttl" yaml:"presence_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		Store: StoreConfig{
			Driver:  "sqlite",
			DSN:     "chatbox.db",
			Timeout: 3 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "chatbox",
			Audience: "chatbox",
			TokenTTL: 24 * time.Hour,
		},
		NATS: NATSConfig{
			SubjectPrefix: "presence",
		},
		Redis: RedisConfig{
			PresenceTTL: 24 * time.Hour,
		},
		TypingTimeout:      1500 * time.Millisecond,
		HeartbeatInterval:  30 * time.Second,
		HeartbeatTimeout:   10 * time.Second,
		OutboundBuffer:     64,
		MaxMessageBytes:    4096,
		MaxMessageRunes:    2000,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.DSN != "" {
		c.Store.DSN = other.Store.DSN
	}
	if other.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = other.Auth.JWTSecret
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.Redis.Addr != "" {
		c.Redis.Addr = other.Redis.Addr
	}
}
