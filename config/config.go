// Package config loads the service configuration from an optional YAML
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds HTTP listener settings.
type Server struct {
	Port          string        `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	AuthRateLimit int           `yaml:"auth_rate_limit"` // per client IP and minute, 0 disables
}

// Database selects the credential store backend.
type Database struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	DSN    string `yaml:"dsn"`
}

// JWT holds token signing settings.
type JWT struct {
	SecretKey            string        `yaml:"secret_key"`
	Issuer               string        `yaml:"issuer"`
	AccessTokenDuration  time.Duration `yaml:"access_token_duration"`
	RefreshTokenDuration time.Duration `yaml:"refresh_token_duration"`
}

// Revocation selects where revoked sessions are recorded.
type Revocation struct {
	Backend   string `yaml:"backend"` // database|redis
	RedisAddr string `yaml:"redis_addr"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Completion holds the upstream completion API settings.
type Completion struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"max_tokens"`
	Temperature    float32       `yaml:"temperature"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Jobs holds job runner settings.
type Jobs struct {
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	WaitTimeout    time.Duration `yaml:"wait_timeout"`
	Retain         int           `yaml:"retain"`
}

// Logging holds logger settings.
type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// Config is the root configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	Database   Database   `yaml:"database"`
	JWT        JWT        `yaml:"jwt"`
	Revocation Revocation `yaml:"revocation"`
	Completion Completion `yaml:"completion"`
	Jobs       Jobs       `yaml:"jobs"`
	Logging    Logging    `yaml:"logging"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:          "3000",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   120 * time.Second,
			AuthRateLimit: 20,
		},
		Database: Database{
			Driver: "sqlite",
			DSN:    "ai_support_chat.db",
		},
		JWT: JWT{
			SecretKey:            "your-secret-key-change-in-production",
			Issuer:               "ai-support-chat",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
		},
		Revocation: Revocation{
			Backend:   "database",
			RedisAddr: "localhost:6379",
			KeyPrefix: "revoked:",
		},
		Completion: Completion{
			Model:          "gpt-3.5-turbo",
			MaxTokens:      200,
			Temperature:    0.7,
			RequestTimeout: 30 * time.Second,
		},
		Jobs: Jobs{
			Workers:        4,
			QueueSize:      256,
			ProcessTimeout: 45 * time.Second,
			WaitTimeout:    60 * time.Second,
			Retain:         1000,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads CONFIG_PATH (default config.yaml) when it exists, then
// applies environment overrides and validates the result.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. A missing file is not an
// error; defaults and environment variables still apply.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.JWT.SecretKey, "JWT_SECRET_KEY")
	setString(&c.JWT.Issuer, "JWT_ISSUER")
	setString(&c.Revocation.Backend, "REVOCATION_BACKEND")
	setString(&c.Revocation.RedisAddr, "REDIS_ADDR")
	setString(&c.Completion.APIKey, "OPENAI_API_KEY")
	setString(&c.Completion.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Completion.Model, "OPENAI_MODEL")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	if err := setInt(&c.Server.AuthRateLimit, "AUTH_RATE_LIMIT"); err != nil {
		return err
	}
	return setInt(&c.Jobs.Workers, "JOB_WORKERS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Server.AuthRateLimit < 0 {
		return errors.New("server.auth_rate_limit must not be negative")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required")
	}
	if c.JWT.AccessTokenDuration <= 0 || c.JWT.RefreshTokenDuration <= 0 {
		return errors.New("jwt token durations must be positive")
	}
	switch c.Revocation.Backend {
	case "database":
	case "redis":
		if c.Revocation.RedisAddr == "" {
			return errors.New("revocation.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("revocation.backend must be database or redis, got %q", c.Revocation.Backend)
	}
	if c.Completion.Model == "" {
		return errors.New("completion.model is required")
	}
	if c.Completion.MaxTokens <= 0 {
		return errors.New("completion.max_tokens must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return errors.New("jobs.workers must be positive")
	}
	if c.Jobs.QueueSize <= 0 {
		return errors.New("jobs.queue_size must be positive")
	}
	if c.Jobs.WaitTimeout <= 0 {
		return errors.New("jobs.wait_timeout must be positive")
	}
	return nil
}
