package config

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "repair")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "repairs")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	// Empty values take the defaults; this also shields the test from
	// anything set in the ambient environment.
	for _, k := range []string{"BCRYPT_COST", "JWT_TTL_HOURS", "MAX_UPLOAD_MB", "UPLOAD_DIR", "WEBHOOK_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	// Only the seed CLI hashes passwords; the API server must still boot
	// without BCRYPT_COST set.
	if cfg.BcryptCost != bcrypt.DefaultCost {
		t.Fatalf("BcryptCost = %d, want bcrypt default %d", cfg.BcryptCost, bcrypt.DefaultCost)
	}
	if cfg.JWTTTLHours != 24 {
		t.Fatalf("JWTTTLHours = %d, want 24", cfg.JWTTTLHours)
	}
	if cfg.MaxUploadMB != 5 {
		t.Fatalf("MaxUploadMB = %d, want 5", cfg.MaxUploadMB)
	}
	if cfg.UploadDir != "./uploads" {
		t.Fatalf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.WebhookOn {
		t.Fatal("webhook enabled without WEBHOOK_ENABLED=true")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("WEBHOOK_ENABLED", "true")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/repairs")

	cfg := Load()
	if cfg.BcryptCost != 12 {
		t.Fatalf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.JWTTTLHours != 2 {
		t.Fatalf("JWTTTLHours = %d, want 2", cfg.JWTTTLHours)
	}
	if !cfg.WebhookOn || cfg.WebhookURL == "" {
		t.Fatalf("webhook config = %v %q", cfg.WebhookOn, cfg.WebhookURL)
	}
}
