package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8080)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Ledger.Currency != "KES" {
		t.Errorf("Ledger.Currency = %q, want KES", cfg.Ledger.Currency)
	}
	if rate, _ := cfg.Rate(); rate.String() != "0.1" {
		t.Errorf("Rate() = %s, want 0.1", rate)
	}
	if !cfg.Notify.Enabled {
		t.Error("Notify.Enabled should be true by default")
	}
	if len(cfg.Notify.KafkaBrokers) != 0 {
		t.Error("Kafka should be off until brokers are configured")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[api]
port = 9090

[database]
driver = "sqlite"
path = "/tmp/soko-test.db"

[ledger]
commission_rate = "0.125"

[stats]
ttl = "5s"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOKO_API_PORT", "9191")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port = %d, want env override 9191", cfg.API.Port)
	}
	if cfg.Database.Path != "/tmp/soko-test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if rate, _ := cfg.Rate(); rate.String() != "0.125" {
		t.Errorf("Rate() = %s, want 0.125", rate)
	}
	if ttl, _ := cfg.StatsTTL(); ttl != 5*time.Second {
		t.Errorf("StatsTTL() = %v, want 5s", ttl)
	}
	if cfg.Ledger.Currency != "KES" {
		t.Errorf("unset keys should keep defaults, Currency = %q", cfg.Ledger.Currency)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadConfig_EnvRate(t *testing.T) {
	t.Setenv("SOKO_COMMISSION_RATE", "1.5")
	if _, err := LoadConfig(""); err == nil {
		t.Error("commission rate above 1 should fail validation")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.API.Port = 0 }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"postgres with url", func(c *Config) {
			c.Database.Driver = "postgres"
			c.Database.URL = "postgres://localhost/soko"
		}, false},
		{"bad currency", func(c *Config) { c.Ledger.Currency = "shilling" }, true},
		{"negative rate", func(c *Config) { c.Ledger.CommissionRate = "-0.1" }, true},
		{"bad ttl", func(c *Config) { c.Stats.TTL = "soon" }, true},
		{"negative buffer", func(c *Config) { c.Notify.Buffer = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.API.Port = 7000
	cfg.Notify.KafkaBrokers = []string{"localhost:9092"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.API.Port != 7000 || len(got.Notify.KafkaBrokers) != 1 {
		t.Errorf("round trip = %+v", got)
	}
}
