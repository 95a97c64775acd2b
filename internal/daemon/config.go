// Package daemon holds the process configuration for soko: a TOML file at
// ~/.soko/config.toml, an optional .env file, and SOKO_* environment overrides.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sokohub/soko/internal/domain"
)

// Config is the full soko configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Database  DatabaseConfig  `toml:"database"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Notify    NotifyConfig    `toml:"notify"`
	Stats     StatsConfig     `toml:"stats"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type APIConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	WebhookSecret string `toml:"webhook_secret"` // empty disables the payment webhook
}

type DatabaseConfig struct {
	Driver   string `toml:"driver"` // sqlite | postgres
	Path     string `toml:"path"`   // sqlite file
	URL      string `toml:"url"`    // postgres connection string
	MaxConns int32  `toml:"max_conns"`
}

type LedgerConfig struct {
	Currency       string `toml:"currency"`
	CommissionRate string `toml:"commission_rate"` // decimal string, e.g. "0.10"
}

type NotifyConfig struct {
	Enabled      bool     `toml:"enabled"`
	Buffer       int      `toml:"buffer"`
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
}

type StatsConfig struct {
	TTL string `toml:"ttl"`
}

type TelemetryConfig struct {
	Metrics bool `toml:"metrics"`
}

// DefaultConfig returns sensible defaults for a single-node install.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     filepath.Join(Home(), "soko.db"),
			MaxConns: 10,
		},
		Ledger: LedgerConfig{
			Currency:       "KES",
			CommissionRate: "0.10",
		},
		Notify: NotifyConfig{
			Enabled:    true,
			Buffer:     1024,
			KafkaTopic: "soko.notifications",
		},
		Stats: StatsConfig{
			TTL: "30s",
		},
		Telemetry: TelemetryConfig{
			Metrics: true,
		},
	}
}

// Home returns the soko state directory: $SOKO_HOME or ~/.soko.
func Home() string {
	if h := os.Getenv("SOKO_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".soko"
	}
	return filepath.Join(home, ".soko")
}

// ConfigPath returns the default config file location.
func ConfigPath() string { return filepath.Join(Home(), "config.toml") }

// LoadConfig reads path over the defaults, then applies .env and environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SOKO_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SOKO_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("SOKO_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SOKO_COMMISSION_RATE"); v != "" {
		c.Ledger.CommissionRate = v
	}
	if v := os.Getenv("SOKO_WEBHOOK_SECRET"); v != "" {
		c.API.WebhookSecret = v
	}
	if v := os.Getenv("SOKO_KAFKA_BROKERS"); v != "" {
		c.Notify.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SOKO_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SOKO_API_PORT: %w", err)
		}
		c.API.Port = port
	}
	return nil
}

// Validate checks the configuration for values the services would reject later.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver)
	}
	if _, err := domain.NormalizeCurrency(c.Ledger.Currency); err != nil {
		return err
	}
	if _, err := c.Rate(); err != nil {
		return err
	}
	if _, err := c.StatsTTL(); err != nil {
		return err
	}
	if c.Notify.Buffer < 0 {
		return fmt.Errorf("notify.buffer %d must not be negative", c.Notify.Buffer)
	}
	return nil
}

// Rate parses ledger.commission_rate.
func (c Config) Rate() (decimal.Decimal, error) { return domain.ParseRate(c.Ledger.CommissionRate) }

// StatsTTL parses stats.ttl; empty means the 30s default.
func (c Config) StatsTTL() (time.Duration, error) {
	if c.Stats.TTL == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Stats.TTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("stats.ttl %q is not a valid duration", c.Stats.TTL)
	}
	return d, nil
}

// Addr returns the API listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port) }

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
