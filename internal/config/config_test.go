package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("unexpected cache backend: %s", cfg.Cache.Backend)
	}
	if cfg.Signals.OverallTrendDepth != 24 || cfg.Signals.BaselineWindow != 8 {
		t.Fatalf("unexpected signal defaults: %+v", cfg.Signals)
	}
	if cfg.Signals.CompanyMinBaseline != 25.0 {
		t.Fatalf("unexpected company guardrail: %v", cfg.Signals.CompanyMinBaseline)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  gracefulTimeout: 5s
upstream:
  baseURL: "http://localhost:9100/"
  timeout: 2s
logging:
  level: debug
  json: true
cache:
  backend: none
signals:
  topN: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Server.GracefulTimeout != 5*time.Second {
		t.Fatalf("unexpected graceful timeout: %v", cfg.Server.GracefulTimeout)
	}
	if cfg.Upstream.BaseURL != "http://localhost:9100/" {
		t.Fatalf("unexpected base url: %s", cfg.Upstream.BaseURL)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Cache.Backend != "none" {
		t.Fatalf("unexpected backend: %s", cfg.Cache.Backend)
	}
	if cfg.Signals.TopN != 5 {
		t.Fatalf("unexpected topN: %d", cfg.Signals.TopN)
	}
	// Unset sections keep their defaults.
	if cfg.Signals.BaselineWindow != 8 {
		t.Fatalf("default lost on partial config: %+v", cfg.Signals)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: memcached\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadRedisRequiresAddr(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: redis\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for redis without addr")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CFPB_SIGNALS_SERVER_ADDRESS", ":7070")
	t.Setenv("CFPB_SIGNALS_LOG_FORMAT", "json")
	t.Setenv("CFPB_SIGNALS_API_KEYS", "alpha, beta ,")
	t.Setenv("CFPB_SIGNALS_CACHE_BACKEND", "none")
	t.Setenv("CFPB_SIGNALS_CACHE_TRENDS_TTL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("env address not applied: %s", cfg.Server.Address)
	}
	if !cfg.Logging.JSON {
		t.Fatal("env log format not applied")
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "alpha" || cfg.Auth.APIKeys[1] != "beta" {
		t.Fatalf("env keys not parsed: %+v", cfg.Auth.APIKeys)
	}
	if cfg.Cache.Backend != "none" {
		t.Fatalf("env backend not applied: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TrendsTTL != 30*time.Minute {
		t.Fatalf("env ttl not applied: %v", cfg.Cache.TrendsTTL)
	}
}
