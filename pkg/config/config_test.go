package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalConfig = `
environment: test
data:
  prices_csv: testdata/prices.csv
  events_csv: testdata/events.csv
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("server port = %d, want 8080", c.Server.Port)
	}
	if c.Sampling.Draws != 2000 || c.Sampling.Chains != 4 {
		t.Fatalf("sampling defaults = %d/%d", c.Sampling.Draws, c.Sampling.Chains)
	}
	if c.Kafka.ResultsTopic != "oilscope.analysis-results" {
		t.Fatalf("results topic = %q", c.Kafka.ResultsTopic)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("PRICES_CSV", "/data/brent.csv")

	c, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9091 {
		t.Fatalf("server port = %d, want 9091", c.Server.Port)
	}
	if c.Redis.Host != "cache.internal" || c.Redis.Port != 6380 {
		t.Fatalf("redis = %s:%d", c.Redis.Host, c.Redis.Port)
	}
	if c.Data.PricesCSV != "/data/brent.csv" {
		t.Fatalf("prices csv = %q", c.Data.PricesCSV)
	}
}

func TestLoadWithEnvKeepsValueOnBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	c, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("server port = %d, want yaml/default 8080", c.Server.Port)
	}
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: test\n")); err == nil {
		t.Fatalf("expected validation error for missing data paths")
	}
}
