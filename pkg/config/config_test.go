package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
objstore:
  endpoint: localhost:9000
  access_key: minioadmin
  secret_key: minioadmin
  bucket: candles
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Engine.Type != "parquet" {
		t.Errorf("engine = %q, want parquet", cfg.Engine.Type)
	}
	if cfg.Limits.MaxRecords != 50000 {
		t.Errorf("max records = %d, want 50000", cfg.Limits.MaxRecords)
	}
	if cfg.Cache.CurrentDayTTL != 60*time.Second {
		t.Errorf("current day ttl = %v, want 60s", cfg.Cache.CurrentDayTTL)
	}
	if got := cfg.Limits.MaxDays["1m"]; got != 30 {
		t.Errorf("max days 1m = %d, want 30", got)
	}
	if got := cfg.Limits.RecordsPerDay["1h"]; got != 24 {
		t.Errorf("records per day 1h = %v, want 24", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
engine:
  type: clickhouse
  clickhouse:
    host: ch.internal
limits:
  max_records: 1000
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Engine.Type != "clickhouse" {
		t.Errorf("engine = %q, want clickhouse", cfg.Engine.Type)
	}
	if cfg.Limits.MaxRecords != 1000 {
		t.Errorf("max records = %d, want 1000", cfg.Limits.MaxRecords)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"missing environment", `
objstore:
  bucket: candles
`},
		{"missing bucket", `
environment: test
`},
		{"bad engine type", minimalConfig + `
engine:
  type: duckdb
`},
		{"clickhouse without host", minimalConfig + `
engine:
  type: clickhouse
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.config)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("OBJSTORE_BUCKET", "other-bucket")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ObjStore.Bucket != "other-bucket" {
		t.Errorf("bucket = %q, want other-bucket", cfg.ObjStore.Bucket)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Errorf("redis override not applied: %+v", cfg.Redis)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
