package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "gamelo", Name: "gamelo", SSLMode: "disable"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth: AuthConfig{
			JWTSecret:       "secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 720 * time.Hour,
		},
		Crypto: CryptoConfig{CodeKey: make([]byte, 32)},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRequiresEncryptionKey(t *testing.T) {
	c := validConfig()
	c.Crypto.CodeKey = nil
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for missing CODE_ENCRYPTION_KEY")
	}
	if !strings.Contains(err.Error(), "CODE_ENCRYPTION_KEY") {
		t.Fatalf("error does not name the key: %v", err)
	}
}

func TestValidateRejectsShortEncryptionKey(t *testing.T) {
	c := validConfig()
	c.Crypto.CodeKey = make([]byte, 16)
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected 32-byte key error, got %v", err)
	}
}

func TestValidateRejectsHalfConfiguredTelegram(t *testing.T) {
	c := validConfig()
	c.Telegram.BotToken = "123:abc"
	// ChatID deliberately empty.
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM") {
		t.Fatalf("expected telegram pairing error, got %v", err)
	}

	c.Telegram.ChatID = "-100200300"
	if err := c.Validate(); err != nil {
		t.Fatalf("fully configured telegram rejected: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatal("expected errors for empty config")
	}
	for _, want := range []string{"APP_ENV", "DB_HOST", "DB_USER", "DB_NAME", "REDIS_HOST", "JWT_SECRET", "CODE_ENCRYPTION_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error is missing %s: %v", want, err)
		}
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	c := validConfig()
	c.DB.SSLMode = ""
	c.Auth.AccessTokenTTL = 0
	c.Auth.RefreshTokenTTL = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("sslmode default not applied: %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("access ttl default not applied: %v", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("refresh ttl default not applied: %v", c.Auth.RefreshTokenTTL)
	}
}

func TestValidateRequiresExplicitSSLModeInProduction(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "gamelo"
	c.Auth.JWTAudience = "gamelo-api"
	c.DB.SSLMode = ""
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected sslmode error in production, got %v", err)
	}

	c.DB.SSLMode = "verify-full"
	if err := c.Validate(); err != nil {
		t.Fatalf("production config rejected: %v", err)
	}
}

func TestValidateRejectsBogusEnvAndPorts(t *testing.T) {
	c := validConfig()
	c.App.Env = "qa"
	c.App.Port = 0
	c.DB.Port = 70000
	err := c.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"APP_ENV", "APP_PORT", "DB_PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error is missing %s: %v", want, err)
		}
	}
}

func TestPostgresDSN(t *testing.T) {
	c := validConfig()
	c.DB.Password = "s3cret"
	dsn := c.PostgresDSN()
	for _, want := range []string{"host=localhost", "port=5432", "user=gamelo", "password=s3cret", "dbname=gamelo", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn missing %q: %s", want, dsn)
		}
	}
}

func TestTelegramEnabled(t *testing.T) {
	var tg TelegramConfig
	if tg.Enabled() {
		t.Fatal("empty telegram config reported enabled")
	}
	tg = TelegramConfig{BotToken: "123:abc", ChatID: "-1"}
	if !tg.Enabled() {
		t.Fatal("configured telegram reported disabled")
	}
}
