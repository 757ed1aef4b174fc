package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

// Config is the top-level localcron configuration.
type Config struct {
	Store Store `yaml:"store"`
	Log   Log   `yaml:"log"`
}

// Store selects and configures the schedule backend.
//
// Driver values:
//   - "sqlite": SQLite database file at Path
//   - "file":   JSON document at Path
//   - "redis":  a single key on a Redis server
//   - "memory": process-local, for tests
type Store struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Redis  Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: Store{
			Driver: "sqlite",
			Path:   "localcron.db",
			Redis: Redis{
				Addr: "localhost:6379",
				Key:  "localcron:cron",
			},
		},
		Log: Log{Level: "warn", Format: "console"},
	}
}

// Load builds a config from defaults, the YAML file at path (if non-empty)
// and LOCALCRON_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("LOCALCRON_STORE_DRIVER", &c.Store.Driver)
	setString("LOCALCRON_STORE_PATH", &c.Store.Path)
	setString("LOCALCRON_REDIS_ADDR", &c.Store.Redis.Addr)
	setString("LOCALCRON_REDIS_PASSWORD", &c.Store.Redis.Password)
	setString("LOCALCRON_REDIS_KEY", &c.Store.Redis.Key)
	setString("LOCALCRON_LOG_LEVEL", &c.Log.Level)
	setString("LOCALCRON_LOG_FORMAT", &c.Log.Format)

	if v := strings.TrimSpace(os.Getenv("LOCALCRON_REDIS_DB")); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LOCALCRON_REDIS_DB=%q is not a number", ErrInvalid, v)
		}
		c.Store.Redis.DB = db
	}
	return nil
}

// Validate reports the first problem that would keep the store or logger from opening.
func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "file":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("%w: store.path is required for the %s driver", ErrInvalid, c.Store.Driver)
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: store.redis.addr is required", ErrInvalid)
		}
		if c.Store.Redis.Key == "" {
			return fmt.Errorf("%w: store.redis.key is required", ErrInvalid)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}
