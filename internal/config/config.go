package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ConfigPath is used when Load receives an empty path.
const ConfigPath = "config.yaml"

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config is read from YAML and then overridden by MEDKIT_* environment
// variables.
type Config struct {
	HTTPAddr string `yaml:"httpAddr" env:"MEDKIT_HTTP_ADDR"`
	GRPCAddr string `yaml:"grpcAddr" env:"MEDKIT_GRPC_ADDR"`
	LogLevel string `yaml:"logLevel" env:"MEDKIT_LOG_LEVEL"`

	StoreDriver string `yaml:"storeDriver" env:"MEDKIT_STORE_DRIVER"`
	StoreDSN    string `yaml:"storeDSN" env:"MEDKIT_STORE_DSN"`

	// Sessions live in memory when RedisAddr is empty.
	RedisAddr     string        `yaml:"redisAddr" env:"MEDKIT_REDIS_ADDR"`
	RedisPassword string        `yaml:"redisPassword" env:"MEDKIT_REDIS_PASSWORD"`
	SessionTTL    time.Duration `yaml:"sessionTTL" env:"MEDKIT_SESSION_TTL"`

	OwnerScoped bool `yaml:"ownerScoped" env:"MEDKIT_OWNER_SCOPED"`

	ScanTime            string `yaml:"scanTime" env:"MEDKIT_SCAN_TIME"`
	Timezone            string `yaml:"timezone" env:"MEDKIT_TIMEZONE"`
	LookAheadDays       int    `yaml:"lookAheadDays" env:"MEDKIT_LOOK_AHEAD_DAYS"`
	DeliveryConcurrency int    `yaml:"deliveryConcurrency" env:"MEDKIT_DELIVERY_CONCURRENCY"`

	MessagesPerSecond float64 `yaml:"messagesPerSecond" env:"MEDKIT_MESSAGES_PER_SECOND"`
	MessageBurst      int     `yaml:"messageBurst" env:"MEDKIT_MESSAGE_BURST"`
}

// Default returns the settings used for anything the file and environment
// leave unset.
func Default() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		LogLevel:            "info",
		StoreDriver:         DriverSQLite,
		StoreDSN:            "medkit.db",
		SessionTTL:          30 * time.Minute,
		ScanTime:            "09:00",
		LookAheadDays:       7,
		DeliveryConcurrency: 8,
		MessagesPerSecond:   2,
		MessageBurst:        5,
	}
}

// Load reads path (defaults to config.yaml). A missing file is not an error
// so the service can run from environment variables alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = ConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves Timezone, falling back to the host zone.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func validate(cfg Config) error {
	if cfg.HTTPAddr == "" {
		return errors.New("config: httpAddr is required")
	}
	switch cfg.StoreDriver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("config: storeDriver must be %q or %q, got %q", DriverMySQL, DriverSQLite, cfg.StoreDriver)
	}
	if strings.TrimSpace(cfg.StoreDSN) == "" {
		return errors.New("config: storeDSN is required")
	}
	if _, err := time.Parse("15:04", cfg.ScanTime); err != nil {
		return fmt.Errorf("config: scanTime must be HH:MM, got %q", cfg.ScanTime)
	}
	if cfg.LookAheadDays <= 0 {
		return errors.New("config: lookAheadDays must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return errors.New("config: sessionTTL must be positive")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}
