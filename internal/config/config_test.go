package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://bnb.example ,")
	t.Setenv("DEFAULT_SYNC_INTERVAL_MIN", "not-a-number")

	cfg := DefaultConfig()
	if cfg.Addr != ":9000" {
		t.Fatalf("expected addr :9000, got %q", cfg.Addr)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h session ttl, got %s", cfg.SessionTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://bnb.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if cfg.DefaultSyncIntervalMin != 15 {
		t.Fatalf("expected fallback interval 15, got %d", cfg.DefaultSyncIntervalMin)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HOST_MAIL=host@bnb.example\nHOST_PASSWORD=secret1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables already present, even empty ones.
	for _, key := range []string{"HOST_MAIL", "HOST_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load(path)
	if !cfg.HasHostAccount() {
		t.Fatalf("expected host account from .env, got mail=%q", cfg.HostMail)
	}
}
