package server

import (
	"fmt"
	"time"
)

// Config controls the HTTP host.
type Config struct {
	Addr string `yaml:"addr"`
	// Debug includes internal error text in responses.
	Debug bool `yaml:"debug"`
	// RateLimit is the sustained requests per second allowed per user;
	// zero disables limiting.
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8000",
		RateLimit:       2,
		RateBurst:       10,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    16 << 20,
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate limit and burst must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return fmt.Errorf("rate_burst must be positive when rate_limit is set")
	}
	return nil
}
