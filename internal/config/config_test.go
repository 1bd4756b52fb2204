package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
gateway:
  url: wss://gateway.example/?v=10&encoding=json
  intents: 4096
api:
  rest_url: https://discord.example/api/v10
  proxy_url: https://proxy.example/
relay:
  reply: got it
database:
  host: localhost
  name: relay
  user: relay
  password: secret
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gateway.URL != "wss://gateway.example/?v=10&encoding=json" {
		t.Errorf("Gateway.URL = %q", cfg.Gateway.URL)
	}
	if cfg.Gateway.Intents != 4096 {
		t.Errorf("Gateway.Intents = %d, want 4096", cfg.Gateway.Intents)
	}
	if cfg.API.ProxyURL != "https://proxy.example/" {
		t.Errorf("API.ProxyURL = %q", cfg.API.ProxyURL)
	}
	if cfg.Relay.Reply != "got it" {
		t.Errorf("Relay.Reply = %q, want %q", cfg.Relay.Reply, "got it")
	}
	if !cfg.Database.Enabled() {
		t.Error("Database.Enabled() = false, want true")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  host: localhost
  name: relay
  user: relay
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeTempFile(t, ".env", "DMRELAY_TEST_NATS=nats://localhost:4222\n")
	t.Setenv("DMRELAY_TEST_NATS", "")
	os.Unsetenv("DMRELAY_TEST_NATS")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("DMRELAY_TEST_NATS"); got != "nats://localhost:4222" {
		t.Errorf("DMRELAY_TEST_NATS = %q", got)
	}

	cfgPath := writeTempFile(t, "config.yaml", "nats:\n  url: ${DMRELAY_TEST_NATS}\n")
	cfg, err := LoadWithDefaults(cfgPath)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if !cfg.NATS.Enabled() || cfg.NATS.Subject != DefaultNATSSubject {
		t.Errorf("NATS = %+v", cfg.NATS)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Gateway.URL != DefaultGatewayURL {
		t.Errorf("Gateway.URL = %q, want default %q", cfg.Gateway.URL, DefaultGatewayURL)
	}
	if cfg.Gateway.Intents != 37377 {
		t.Errorf("Gateway.Intents = %d, want 37377", cfg.Gateway.Intents)
	}
	if cfg.Gateway.ReconnectBaseDelay != time.Second {
		t.Errorf("Gateway.ReconnectBaseDelay = %v, want 1s", cfg.Gateway.ReconnectBaseDelay)
	}
	if cfg.Gateway.ReconnectMaxDelay != time.Minute {
		t.Errorf("Gateway.ReconnectMaxDelay = %v, want 1m", cfg.Gateway.ReconnectMaxDelay)
	}
	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.Relay.Reaction != DefaultReaction {
		t.Errorf("Relay.Reaction = %q, want %q", cfg.Relay.Reaction, DefaultReaction)
	}
	if cfg.Database.Enabled() {
		t.Error("Database should be disabled by default")
	}
	if cfg.Database.Port != 0 {
		t.Errorf("Database.Port = %d, want 0 when disabled", cfg.Database.Port)
	}
	if cfg.NATS.Enabled() || cfg.Server.Enabled() {
		t.Error("optional sections should be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "http gateway url",
			mutate:  func(c *Config) { c.Gateway.URL = "https://gateway.discord.gg" },
			wantErr: `gateway.url must be a ws:// or wss:// URL, got "https://gateway.discord.gg"`,
		},
		{
			name: "max below base",
			mutate: func(c *Config) {
				c.Gateway.ReconnectBaseDelay = 10 * time.Second
				c.Gateway.ReconnectMaxDelay = 5 * time.Second
			},
			wantErr: "gateway.reconnect_max_delay (5s) cannot be less than reconnect_base_delay (10s)",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Relay.Concurrency = 0 },
			wantErr: "relay.concurrency must be >= 1",
		},
		{
			name: "database without password",
			mutate: func(c *Config) {
				c.Database = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 4}
			},
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: 5}
			},
			wantErr: "database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadAndValidate_ExampleConfig(t *testing.T) {
	t.Setenv("DMRELAY_DB_HOST", "")
	t.Setenv("DMRELAY_NATS_URL", "")

	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "dmrelay.example.yaml"))
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without DMRELAY_DB_HOST")
	}
	if cfg.NATS.Enabled() {
		t.Error("nats should be disabled without DMRELAY_NATS_URL")
	}
	if cfg.Relay.Reaction != "👀" {
		t.Errorf("Reaction = %q, want 👀", cfg.Relay.Reaction)
	}
	if cfg.Server.Addr != "127.0.0.1:8090" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}
