// Package config assembles the runtime configuration from defaults, an
// optional YAML file and ROUNDS_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/rounds/internal/chunkcache"
	"github.com/abhisek/rounds/internal/grading"
	"github.com/abhisek/rounds/internal/llm"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/mastery"
	"github.com/abhisek/rounds/internal/question"
	"github.com/abhisek/rounds/internal/retrieval"
	"github.com/abhisek/rounds/internal/server"
	"github.com/abhisek/rounds/internal/store"
)

// Config is the root of rounds.yaml.
type Config struct {
	LLM    llm.Config        `yaml:"llm"`
	Store  store.Config      `yaml:"store"`
	Log    logger.Options    `yaml:"log"`
	Cache  chunkcache.Config `yaml:"chunk_cache"`
	Server server.Config     `yaml:"server"`
	Engine EngineConfig      `yaml:"engine"`
}

// EngineConfig tunes retrieval, generation, grading and level transitions.
type EngineConfig struct {
	TopK     int             `yaml:"top_k"`
	Mastery  mastery.Config  `yaml:",inline"`
	Question question.Config `yaml:"question"`
	Grading  grading.Config  `yaml:"grading"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM:    llm.DefaultConfig(),
		Store:  store.Config{Driver: "sqlite"},
		Log:    logger.Options{Mode: "dev", Level: "info"},
		Cache:  chunkcache.Config{TTL: time.Hour},
		Server: server.DefaultConfig(),
		Engine: EngineConfig{
			TopK:     retrieval.DefaultTopK,
			Mastery:  mastery.DefaultConfig(),
			Question: question.DefaultConfig(),
			Grading:  grading.DefaultConfig(),
		},
	}
}

// DefaultPath returns the config file location: ROUNDS_CONFIG when set,
// otherwise $XDG_CONFIG_HOME/rounds/rounds.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("ROUNDS_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "rounds", "rounds.yaml"), nil
}

// Load builds a Config. A missing file at path is not an error; an empty
// path skips the file entirely. Unknown YAML keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := decode(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables. Malformed numeric or boolean
// values are reported rather than silently ignored.
func (c *Config) ApplyEnv() error {
	c.LLM.ApplyEnv()

	str := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str(&c.Store.Driver, "ROUNDS_DB_DRIVER")
	str(&c.Store.DSN, "ROUNDS_DB_DSN")
	str(&c.Log.Mode, "ROUNDS_LOG_MODE")
	str(&c.Log.Level, "ROUNDS_LOG_LEVEL")
	str(&c.Log.Path, "ROUNDS_LOG_PATH")
	str(&c.Log.HashSalt, "ROUNDS_LOG_HASH_SALT")
	str(&c.Cache.Addr, "ROUNDS_REDIS_ADDR")
	str(&c.Cache.Password, "ROUNDS_REDIS_PASSWORD")
	str(&c.Server.Addr, "ROUNDS_ADDR")

	if v := os.Getenv("ROUNDS_CONSISTENCY_COUNTER"); v != "" {
		c.Engine.Mastery.ConsistencyCounter = mastery.CounterMode(v)
	}
	if v := os.Getenv("ROUNDS_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ROUNDS_DEBUG: %w", err)
		}
		c.Server.Debug = b
	}
	if v := os.Getenv("ROUNDS_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROUNDS_TOP_K: %w", err)
		}
		c.Engine.TopK = n
	}
	if v := os.Getenv("ROUNDS_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROUNDS_REDIS_DB: %w", err)
		}
		c.Cache.DB = n
	}
	return nil
}

// Validate checks every section except LLM credentials, which only the
// commands that call a model need. See RequireLLM.
func (c Config) Validate() error {
	if c.Engine.TopK < 1 {
		return fmt.Errorf("engine.top_k must be positive, got %d", c.Engine.TopK)
	}
	if c.Engine.Question.MaxAttempts < 1 {
		return fmt.Errorf("engine.question.max_attempts must be positive, got %d", c.Engine.Question.MaxAttempts)
	}
	if err := c.Engine.Mastery.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	switch c.Store.Driver {
	case "", "sqlite":
	case "postgres", "pgx":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// RequireLLM resolves provider credentials, falling back to the vendors'
// standard key variables.
func (c *Config) RequireLLM() error {
	if c.LLM.Discover() {
		return nil
	}
	return c.LLM.Validate()
}

// WriteDefault writes the built-in configuration to path, creating parent
// directories. An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
