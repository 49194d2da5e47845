package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromFileYAMLOverDefaults(t *testing.T) {
	path := writeFile(t, "inkwell.yaml", `
store:
  driver: memory
query:
  default_page_size: 10
observability:
  logging:
    format: json
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Query.DefaultPageSize != 10 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Query.MaxPageSize != 100 || cfg.Observability.Logging.Level != "info" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadFromFileJSON(t *testing.T) {
	path := writeFile(t, "inkwell.json", `{"server": {"http_addr": ":9999"}}`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9999" || cfg.Server.GRPCAddr != ":9090" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := writeFile(t, "bad.yaml", "query: [unterminated")
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INKWELL_STORE_DRIVER", "memory")
	t.Setenv("INKWELL_REDIS_DB", "3")
	t.Setenv("INKWELL_RATE_LIMIT_ENABLED", "true")
	t.Setenv("INKWELL_RATE_LIMIT_RPS", "2.5")
	t.Setenv("INKWELL_MAX_PAGE_SIZE", "not-a-number")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)
	if cfg.Store.Driver != "memory" || cfg.Redis.DB != 3 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Fatalf("rate limit env not applied: %+v", cfg.RateLimit)
	}
	if cfg.Query.MaxPageSize != 100 {
		t.Fatalf("malformed env value must be ignored, got %d", cfg.Query.MaxPageSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "Driver"},
		{name: "max below default", mutate: func(c *Config) { c.Query.MaxPageSize = 5 }, wantErr: "MaxPageSize"},
		{name: "bad log level", mutate: func(c *Config) { c.Observability.Logging.Level = "trace" }, wantErr: "Level"},
		{name: "sample rate", mutate: func(c *Config) { c.Observability.Tracing.SampleRate = 2 }, wantErr: "SampleRate"},
		{name: "missing dsn", mutate: func(c *Config) { c.Postgres.DSN = "" }, wantErr: "postgres.dsn"},
		{name: "memory needs no dsn", mutate: func(c *Config) { c.Store.Driver = "memory"; c.Postgres.DSN = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
