package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: "9090"
  allowed_origins: ["https://contest.example"]
redis:
  addr: "localhost:6379"
contest:
  timezone: "Asia/Tokyo"
  lock_duration: "15s"
  self_register: false
  default_duration: "45m"
admin:
  token: "from-file"
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ADMIN_TOKEN", "from-env")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("CONTEST_DEFAULT_DURATION", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port from file, got %q", cfg.Server.Port)
	}
	if cfg.Admin.Token != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Admin.Token)
	}
	if cfg.SelfRegister() {
		t.Fatalf("expected self registration disabled")
	}
	if got := TTLDuration(cfg.Contest.LockDuration, 10*time.Second); got != 15*time.Second {
		t.Fatalf("expected 15s lock, got %v", got)
	}
	if got := TTLDuration(cfg.Contest.DefaultDuration, 30*time.Minute); got != 45*time.Minute {
		t.Fatalf("expected 45m default duration, got %v", got)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://contest.example" {
		t.Fatalf("unexpected allowed origins %v", cfg.Server.AllowedOrigins)
	}
	loc, err := cfg.Location("UTC")
	if err != nil || loc.String() != "Asia/Tokyo" {
		t.Fatalf("unexpected location %v err=%v", loc, err)
	}
}

func TestLoadSplitsAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example, ,https://b.example ")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected allowed origins %q", cfg.Server.AllowedOrigins)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONTEST_TIMEZONE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.SelfRegister() {
		t.Fatalf("expected self registration on by default")
	}
	if TTLDuration(cfg.Contest.CacheTTL, 4*time.Second) != 4*time.Second {
		t.Fatalf("expected cache ttl fallback")
	}
	if TTLDuration("bogus", time.Minute) != time.Minute {
		t.Fatalf("expected fallback for unparsable duration")
	}
}
