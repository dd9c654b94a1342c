// Package config loads settings shared by the livedraft binaries from an
// optional YAML file, then applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/livedraft/go/internal/dbconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	StoreModePostgres = "postgres"
	StoreModeMemory   = "memory"
)

type Config struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Postgres dbconfig.Config `yaml:"postgres"`
	Redis    struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		LockTTL  time.Duration `yaml:"lock_ttl"`
		StateTTL time.Duration `yaml:"state_ttl"`
	} `yaml:"redis"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	Gateway struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"gateway"`
	API struct {
		URL string `yaml:"url"` // where the orchestrator reaches the draft services
	} `yaml:"api"`
	Orchestrator struct {
		Workers   int           `yaml:"workers"`
		BatchSize int           `yaml:"batch_size"`
		IdlePoll  time.Duration `yaml:"idle_poll"`

		// MaxBackoff caps retries of a draft whose autopick keeps failing
		MaxBackoff time.Duration `yaml:"max_backoff"`
	} `yaml:"orchestrator"`
	Outbox struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		BatchSize    int           `yaml:"batch_size"`
		MaxRetries   int           `yaml:"max_retries"`
		RetryDelay   time.Duration `yaml:"retry_delay"`
	} `yaml:"outbox"`
	Store string `yaml:"store"`
	Log   struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`
}

// Defaults returns the development configuration.
func Defaults() *Config {
	c := &Config{}
	c.HTTP.Port = "8080"
	c.Postgres = dbconfig.Defaults()
	c.Redis.Addr = "localhost:6379"
	c.Redis.LockTTL = 5 * time.Second
	c.Redis.StateTTL = 24 * time.Hour
	c.Mongo.Database = "livedraft"
	c.NATS.URL = "nats://127.0.0.1:4222"
	c.NATS.Stream = "DRAFT_EVENTS"
	c.NATS.SubjectPrefix = "draft.events"
	c.API.URL = "http://localhost:8080"
	c.Gateway.Port = "8081"
	c.Orchestrator.Workers = 4
	c.Orchestrator.BatchSize = 50
	c.Orchestrator.IdlePoll = 30 * time.Second
	c.Orchestrator.MaxBackoff = time.Minute
	c.Outbox.PollInterval = 5 * time.Second
	c.Outbox.BatchSize = 100
	c.Outbox.MaxRetries = 3
	c.Outbox.RetryDelay = time.Second
	c.Store = StoreModePostgres
	c.Log.Level = "info"
	c.Log.Console = true
	return c
}

// Load reads .env, then the YAML file named by LIVEDRAFT_CONFIG (default
// config.yaml, optional), then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return LoadFile(getEnv("LIVEDRAFT_CONFIG", "config.yaml"))
}

// LoadFile is Load without .env handling. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	c := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	c.Postgres.ApplyEnv()
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.LockTTL = getEnvAsDuration("LOCK_TTL", c.Redis.LockTTL)
	c.Redis.StateTTL = getEnvAsDuration("STATE_TTL", c.Redis.StateTTL)
	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.API.URL = getEnv("DRAFT_API_URL", c.API.URL)
	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)
	c.Orchestrator.Workers = getEnvAsInt("ORCHESTRATOR_WORKERS", c.Orchestrator.Workers)
	c.Orchestrator.BatchSize = getEnvAsInt("ORCHESTRATOR_BATCH_SIZE", c.Orchestrator.BatchSize)
	c.Orchestrator.IdlePoll = getEnvAsDuration("ORCHESTRATOR_IDLE_POLL", c.Orchestrator.IdlePoll)
	c.Orchestrator.MaxBackoff = getEnvAsDuration("ORCHESTRATOR_MAX_BACKOFF", c.Orchestrator.MaxBackoff)
	c.Outbox.PollInterval = getEnvAsDuration("FALLBACK_INTERVAL", c.Outbox.PollInterval)
	c.Outbox.BatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", c.Outbox.BatchSize)
	c.Store = getEnv("STORE", c.Store)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if v, err := strconv.ParseBool(getEnv("LOG_CONSOLE", "")); err == nil {
		c.Log.Console = v
	}
}

func (c *Config) Validate() error {
	if c.Store != StoreModePostgres && c.Store != StoreModeMemory {
		return fmt.Errorf("unknown store mode %q", c.Store)
	}
	if c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis lock_ttl must be positive")
	}
	if c.Orchestrator.Workers <= 0 {
		return fmt.Errorf("orchestrator workers must be positive")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox batch_size must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// SetupLogging configures the global zerolog logger.
func (c *Config) SetupLogging() {
	if c.Log.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
