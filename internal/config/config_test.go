package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGatewayConfigDefaults(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "config", "dev"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "config", "dev", "gateway.ini"), []byte(""), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}

	cfg, err := LoadGatewayConfig(tmp)
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.Environment != "dev" {
		t.Fatalf("expected dev environment, got %s", cfg.Environment)
	}
	if cfg.Port != 8787 {
		t.Fatalf("expected default port 8787, got %d", cfg.Port)
	}
	if cfg.Host != "127.0.0.1" {
		t.Fatalf("expected default host 127.0.0.1, got %s", cfg.Host)
	}
	if !cfg.DevMode {
		t.Fatalf("expected dev mode true in the dev environment by default")
	}
	if cfg.DefaultCooldownMs != 60_000 {
		t.Fatalf("expected default cooldown 60000ms, got %d", cfg.DefaultCooldownMs)
	}
	for _, name := range AllBackends {
		b, ok := cfg.Backends[name]
		if !ok {
			t.Fatalf("expected a BackendConfig for %s", name)
		}
		if len(b.Models) == 0 {
			t.Fatalf("expected a default model list for %s", name)
		}
		if b.PoolFile == "" {
			t.Fatalf("expected a default pool file for %s", name)
		}
	}
	cursorCfg := cfg.Backends[BackendCursor]
	if cursorCfg.Endpoint == "" || cursorCfg.Vendor == "" {
		t.Fatalf("expected default endpoint and vendor for the cursor backend, got %+v", cursorCfg)
	}
	if cfg.RateLimitBurst <= 0 || cfg.RateLimitPerSec <= 0 {
		t.Fatalf("expected positive default rate limit values, got burst=%v perSec=%v", cfg.RateLimitBurst, cfg.RateLimitPerSec)
	}
}

func TestLoadGatewayConfigEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "config", "dev"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "port=9000\nhost=0.0.0.0\napi_key=secret123\nresponses_models=gpt-5.1-codex\n"
	if err := os.WriteFile(filepath.Join(tmp, "config", "dev", "gateway.ini"), []byte(content), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}

	cfg, err := LoadGatewayConfig(tmp)
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("unexpected port %d", cfg.Port)
	}
	if cfg.Host != "0.0.0.0" {
		t.Fatalf("unexpected host %s", cfg.Host)
	}
	if cfg.APIKey != "secret123" {
		t.Fatalf("unexpected api key %s", cfg.APIKey)
	}
	if got := cfg.Backends[BackendResponses].Models; len(got) != 1 || got[0] != "gpt-5.1-codex" {
		t.Fatalf("unexpected responses models %#v", got)
	}
}

func TestLoadGatewayConfigInvalidCooldown(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "config", "dev"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "config", "dev", "gateway.ini"), []byte("default_cooldown_ms=not-a-number\n"), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}

	if _, err := LoadGatewayConfig(tmp); err == nil {
		t.Fatalf("expected error for invalid default_cooldown_ms")
	}
}

func TestLoadGatewayConfigProdIsNotDevModeByDefault(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "config", "setting.ini"), []byte("environment=prod\n"), 0o644); err != nil {
		t.Fatalf("write setting: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmp, "config", "prod"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := LoadGatewayConfig(tmp)
	if err != nil {
		t.Fatalf("LoadGatewayConfig: %v", err)
	}
	if cfg.DevMode {
		t.Fatalf("expected dev mode false outside the dev environment by default")
	}
}
