package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultJWTSecret = "supersecretkey"

	NotifierLog  = "log"
	NotifierAMQP = "amqp"
)

type Config struct {
	Addr           string         `yaml:"addr"`
	JWTSecret      string         `yaml:"jwt_secret"`
	APITimeout     time.Duration  `yaml:"timeout"`
	DatabasePath   string         `yaml:"database_path"`
	BusyTimeout    time.Duration  `yaml:"busy_timeout"`
	MigrateOnStart bool           `yaml:"migrate_on_start"`
	TokenDuration  time.Duration  `yaml:"token_duration"`
	RateLimit      float64        `yaml:"rate_limit"`
	RateBurst      int            `yaml:"rate_burst"`
	Notifier       NotifierConfig `yaml:"notifier"`
}

// NotifierConfig selects and configures the hire notification dispatcher.
type NotifierConfig struct {
	Driver         string        `yaml:"driver"`
	URL            string        `yaml:"url"`
	Queue          string        `yaml:"queue"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	cfg := &Config{
		Addr:           getEnv("MARKET_ADDR", ":8080"),
		JWTSecret:      getEnv("MARKET_JWT_SECRET", defaultJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("MARKET_DATABASE_PATH", "market.db"),
		BusyTimeout:    5 * time.Second,
		MigrateOnStart: getEnvBool("MARKET_MIGRATE_ON_START", true),
		TokenDuration:  tokenDuration,
		Notifier: NotifierConfig{
			Driver: getEnv("MARKET_NOTIFIER_DRIVER", NotifierLog),
			URL:    getEnv("MARKET_AMQP_URL", ""),
			Queue:  getEnv("MARKET_NOTIFIER_QUEUE", "hire_notifications"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration and fills in defaults for optional
// fields. The built-in JWT secret is only accepted when MARKET_ENV is
// "development".
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == defaultJWTSecret && os.Getenv("MARKET_ENV") != "development" {
		return errors.New("jwt_secret uses the insecure default; set MARKET_JWT_SECRET or MARKET_ENV=development")
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = int(c.RateLimit) + 1
	}

	switch c.Notifier.Driver {
	case "":
		c.Notifier.Driver = NotifierLog
	case NotifierLog:
	case NotifierAMQP:
		if c.Notifier.URL == "" {
			return errors.New("notifier.url is required for the amqp driver")
		}
	default:
		return fmt.Errorf("unknown notifier.driver %q", c.Notifier.Driver)
	}
	if c.Notifier.Queue == "" {
		c.Notifier.Queue = "hire_notifications"
	}
	if c.Notifier.PublishTimeout <= 0 {
		c.Notifier.PublishTimeout = 5 * time.Second
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
