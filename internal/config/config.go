package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// Economy.
	StartingCoins int64 `mapstructure:"starting_coins" yaml:"starting_coins"`
	UnlockCost    int64 `mapstructure:"unlock_cost" yaml:"unlock_cost"`

	// Timeouts applied to store calls and to a single inbound command.
	StoreTimeout time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
	OpTimeout    time.Duration `mapstructure:"op_timeout" yaml:"op_timeout"`

	DegradeAfterFailures int `mapstructure:"degrade_after_failures" yaml:"degrade_after_failures"`
	HistoryDefaultLimit  int `mapstructure:"history_default_limit" yaml:"history_default_limit"`
	HistoryMaxLimit      int `mapstructure:"history_max_limit" yaml:"history_max_limit"`

	ClientBuffer       int   `mapstructure:"client_buffer" yaml:"client_buffer"`
	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	MaxStageSpeakers   int   `mapstructure:"max_stage_speakers" yaml:"max_stage_speakers"`

	LiveKit LiveKitConfig `mapstructure:"livekit" yaml:"livekit"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

// LiveKitConfig enables media tokens for voice rooms when Enabled is set.
type LiveKitConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	URL       string `mapstructure:"url" yaml:"url"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
}

// RedisConfig enables the presence mirror when Addr is non-empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Key      string `mapstructure:"key" yaml:"key"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		LogLevel:             "info",
		LogFormat:            "console",
		DatabasePath:         "coinchat.db",
		JWTSecret:            "change-me",
		JWTIssuer:            "coinchat",
		JWTAudience:          "coinchat",
		JWTTTL:               24 * time.Hour,
		CORSOrigins:          []string{"*"},
		StartingCoins:        1000,
		UnlockCost:           50,
		StoreTimeout:         3 * time.Second,
		OpTimeout:            5 * time.Second,
		DegradeAfterFailures: 3,
		HistoryDefaultLimit:  50,
		HistoryMaxLimit:      100,
		ClientBuffer:         64,
		MaxMessageBytes:      1 << 16,
		RateLimitPerMinute:   120,
		MaxStageSpeakers:     10,
		Redis: RedisConfig{
			Key: "coinchat:online",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the fields exposed as CLI flags are considered.
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
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}
