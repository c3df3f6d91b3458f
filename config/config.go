package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Debug    bool           `yaml:"debug" env:"DEBUG" env-default:"false"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" env:"LISTEN_ADDR" env-default:":8080"`
	Port            string        `yaml:"port" env:"FUNCTIONS_CUSTOMHANDLER_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type PostgresConfig struct {
	URL            string        `yaml:"url" env:"DATABASE_URL"`
	MaxConns       int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"30s"`
	MigrateOnStart bool          `yaml:"migrate_on_start" env:"MIGRATE_ON_START" env-default:"false"`
}

type RedisConfig struct {
	ConnectionString string        `yaml:"connection_string" env:"REDIS_CONNECTION_STRING"`
	TaskTTL          time.Duration `yaml:"task_ttl" env:"TASK_CACHE_TTL" env-default:"15s"`
}

type EventsConfig struct {
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	Queue                   string        `yaml:"queue" env:"TASK_EVENTS_QUEUE"`
	Workers                 int           `yaml:"workers" env:"EVENT_WORKERS" env-default:"0"`
	Buffer                  int           `yaml:"buffer" env:"EVENT_BUFFER" env-default:"0"`
	PublishTimeout          time.Duration `yaml:"publish_timeout" env:"EVENT_PUBLISH_TIMEOUT" env-default:"30s"`
	HandoffTimeout          time.Duration `yaml:"handoff_timeout" env:"EVENT_HANDOFF_TIMEOUT" env-default:"15ms"`
}

// Enabled reports whether change events should be published.
func (e EventsConfig) Enabled() bool {
	return e.StorageConnectionString != "" && e.Queue != ""
}

// Addr returns the address the HTTP server listens on. An Azure Functions
// custom handler port takes precedence.
func (s ServerConfig) Addr() string {
	if s.Port != "" {
		return ":" + s.Port
	}
	return s.ListenAddr
}

// Load reads the configuration from the YAML file named by CONFIG_PATH, or
// from the environment alone when it is unset. Environment variables
// override file values.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config not read: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config not read: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr() == "" {
		errs = append(errs, errors.New("LISTEN_ADDR must not be empty"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be greater than zero"))
	}
	if c.Postgres.MaxConns < 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must not be negative"))
	}
	if c.Postgres.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("DB_CONNECT_TIMEOUT must be greater than zero"))
	}
	if c.Redis.TaskTTL < 0 {
		errs = append(errs, errors.New("TASK_CACHE_TTL must not be negative"))
	}
	if c.Events.Workers < 0 || c.Events.Buffer < 0 {
		errs = append(errs, errors.New("EVENT_WORKERS and EVENT_BUFFER must not be negative"))
	}
	if c.Events.PublishTimeout <= 0 {
		errs = append(errs, errors.New("EVENT_PUBLISH_TIMEOUT must be greater than zero"))
	}
	if c.Events.HandoffTimeout < 0 {
		errs = append(errs, errors.New("EVENT_HANDOFF_TIMEOUT must not be negative"))
	}
	if (c.Events.StorageConnectionString == "") != (c.Events.Queue == "") {
		errs = append(errs, errors.New("STORAGE_CONNECTION_STRING and TASK_EVENTS_QUEUE must be set together"))
	}
	return errors.Join(errs...)
}
