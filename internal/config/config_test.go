package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{"API_BASE_URL", "SPLITUP_API_URL", "HTTP_TIMEOUT_SECONDS", "SESSION_FILE", "SESSION_PROFILE", "PORT", "SERVER_PORT", "CODE_TTL_MINUTES"} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Fatalf("expected default base url, got %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout() != 0 {
		t.Fatalf("expected no timeout by default, got %v", cfg.HTTPTimeout())
	}
	if filepath.Base(cfg.SessionFile) != "session.json" {
		t.Fatalf("expected default session file, got %q", cfg.SessionFile)
	}
	if cfg.SessionProfile != "default" {
		t.Fatalf("expected default profile, got %q", cfg.SessionProfile)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.CodeTTL() != 15*time.Minute {
		t.Fatalf("expected 15m code ttl, got %v", cfg.CodeTTL())
	}
}

func TestLoadConfig_NormalizesBaseURLAndAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "API_BASE_URL")
	setEnvWithCleanup(t, "SPLITUP_API_URL", " https://api.splitup.kg/api/ ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.APIBaseURL != "https://api.splitup.kg/api" {
		t.Fatalf("expected alias base url trimmed, got %q", cfg.APIBaseURL)
	}
}

func TestLoadConfig_PortTakesPrecedence(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "9000")
	setEnvWithCleanup(t, "PORT", "7000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "7000" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_CoercesInvalidNumbers(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "HTTP_TIMEOUT_SECONDS", "-3")
	setEnvWithCleanup(t, "AUTH_RATE_LIMIT_PER_MINUTE", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.HTTPTimeoutSeconds != 0 {
		t.Fatalf("expected negative timeout coerced to 0, got %d", cfg.HTTPTimeoutSeconds)
	}
	if cfg.AuthRateLimitPerMinute != 30 {
		t.Fatalf("expected rate limit fallback 30, got %d", cfg.AuthRateLimitPerMinute)
	}
}

func TestLoadConfig_CollectsPathOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "API_PATH_PLANS_BY_SERVICE", "/services/{id}/plans")
	setEnvWithCleanup(t, "API_PATH_SERVICE_TYPES", " ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got := cfg.PathOverrides["plans_by_service"]; got != "/services/{id}/plans" {
		t.Fatalf("expected plans_by_service override, got %q", got)
	}
	if _, ok := cfg.PathOverrides["service_types"]; ok {
		t.Fatal("expected blank override to be ignored")
	}
}

func TestLoadConfig_ReadsDotEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SESSION_PROFILE")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SESSION_PROFILE=kiosk\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SessionProfile != "kiosk" {
		t.Fatalf("expected profile from .env, got %q", cfg.SessionProfile)
	}
}

func TestLoadConfig_PathOverridesFromDotEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "API_PATH_PLANS_BY_SERVICE")
	setEnvWithCleanup(t, "API_PATH_PLANS", "/v2/plans")
	dir := t.TempDir()
	env := "API_PATH_PLANS_BY_SERVICE=/services/{id}/plans\nAPI_PATH_PLANS=/catalog/plans\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got := cfg.PathOverrides["plans_by_service"]; got != "/services/{id}/plans" {
		t.Fatalf("expected plans_by_service from .env, got %q", got)
	}
	if got := cfg.PathOverrides["plans"]; got != "/v2/plans" {
		t.Fatalf("expected environment to win over .env, got %q", got)
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSOrigins: " https://a.kg, ,https://b.kg"}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "https://a.kg" || got[1] != "https://b.kg" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := (Config{LogLevel: raw}).SlogLevel(); got != want {
			t.Fatalf("LogLevel %q: expected %v, got %v", raw, want, got)
		}
	}
}

func TestLoadConfig_SeedDemoDataDefaultsOn(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SEED_DEMO_DATA")
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.SeedDemoData {
		t.Fatalf("expected demo data to be seeded by default")
	}

	viper.Reset()
	setEnvWithCleanup(t, "SEED_DEMO_DATA", "false")
	cfg, err = LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SeedDemoData {
		t.Fatalf("expected SEED_DEMO_DATA=false to disable seeding")
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
		}
	})
}
