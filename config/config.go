// Package config loads ftpio stream settings from FTPIO_* environment
// variables and turns them into stream options.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Netflix/go-env"

	"github.com/gonzalop/ftpio"
)

// Throttle names used for the pairs built from the environment.
const (
	GlobalThrottle  = "global"
	SessionThrottle = "session"
)

type Config struct {
	Timeout      string `env:"FTPIO_TIMEOUT,default=30s"`
	ReadTimeout  string `env:"FTPIO_READ_TIMEOUT"`
	WriteTimeout string `env:"FTPIO_WRITE_TIMEOUT"`
	ResetRate    string `env:"FTPIO_RESET_RATE,default=10s"`
	BufferSize   int    `env:"FTPIO_BUFFER_SIZE,default=8192"`

	GlobalReadLimit   int64 `env:"FTPIO_GLOBAL_READ_LIMIT,default=0"`
	GlobalWriteLimit  int64 `env:"FTPIO_GLOBAL_WRITE_LIMIT,default=0"`
	SessionReadLimit  int64 `env:"FTPIO_SESSION_READ_LIMIT,default=0"`
	SessionWriteLimit int64 `env:"FTPIO_SESSION_WRITE_LIMIT,default=0"`

	LogLevel    string `env:"FTPIO_LOG_LEVEL,default=info"`
	MetricsAddr string `env:"FTPIO_METRICS_ADDR"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for key, value := range map[string]string{
		"FTPIO_TIMEOUT":       c.Timeout,
		"FTPIO_READ_TIMEOUT":  c.ReadTimeout,
		"FTPIO_WRITE_TIMEOUT": c.WriteTimeout,
		"FTPIO_RESET_RATE":    c.ResetRate,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("FTPIO_BUFFER_SIZE: must be positive, got %d", c.BufferSize)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("FTPIO_LOG_LEVEL: %w", err)
	}
	return nil
}

// duration parses a value already checked by Load.
func duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// Level returns the parsed FTPIO_LOG_LEVEL.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// Global builds the pair shared by every stream of the process.
func (c *Config) Global() ftpio.ThrottlePair {
	return ftpio.NewThrottlePair(c.GlobalReadLimit, c.GlobalWriteLimit, ftpio.WithResetRate(duration(c.ResetRate)))
}

// Session builds the per-stream pair template.
func (c *Config) Session() ftpio.ThrottlePair {
	return ftpio.NewThrottlePair(c.SessionReadLimit, c.SessionWriteLimit, ftpio.WithResetRate(duration(c.ResetRate)))
}

// Options returns the stream options described by c. global is shared by
// reference; the session pair is cloned for each stream.
func (c *Config) Options(global ftpio.ThrottlePair) []ftpio.Option {
	opts := []ftpio.Option{
		ftpio.WithTimeout(duration(c.Timeout)),
		ftpio.WithBufferSize(c.BufferSize),
		ftpio.WithSharedThrottle(GlobalThrottle, global),
		ftpio.WithThrottle(SessionThrottle, c.Session()),
	}
	if c.ReadTimeout != "" {
		opts = append(opts, ftpio.WithReadTimeout(duration(c.ReadTimeout)))
	}
	if c.WriteTimeout != "" {
		opts = append(opts, ftpio.WithWriteTimeout(duration(c.WriteTimeout)))
	}
	return opts
}
