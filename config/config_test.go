package config_test

import (
	"testing"
	"time"

	"github.com/uniusa/verify-bot/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "discord-token")
	t.Setenv("GUILD_ID", "guild-1")
	t.Setenv("VERIFIED_ROLE_ID", "role-1")
	t.Setenv("WA_ACCOUNT_ID", "12345")
	t.Setenv("WA_CLIENT_ID", "client-id")
	t.Setenv("WA_CLIENT_SECRET", "client-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "local" {
		t.Errorf("Env = %q, want local", cfg.Env)
	}
	if cfg.TokenFile != "config.json" {
		t.Errorf("TokenFile = %q", cfg.TokenFile)
	}
	if cfg.CodeTTL != 0 {
		t.Errorf("CodeTTL = %v, want no expiry by default", cfg.CodeTTL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.EmailProvider != "wildapricot" {
		t.Errorf("EmailProvider = %q", cfg.EmailProvider)
	}
}

func TestLoad_MissingDiscordToken_Fails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := config.Load(); err == nil {
		t.Error("expected an error when DISCORD_TOKEN is unset")
	}
}

func TestLoad_ResendProviderRequiresCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_PROVIDER", "resend")

	if _, err := config.Load(); err == nil {
		t.Error("expected an error when resend credentials are missing")
	}

	t.Setenv("RESEND_API_KEY", "key")
	t.Setenv("RESEND_FROM", "verify@uniusa.org")

	if _, err := config.Load(); err != nil {
		t.Errorf("unexpected error with credentials set: %v", err)
	}
}

func TestLoad_CodeTTLParsedAsDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CODE_TTL", "15m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CodeTTL != 15*time.Minute {
		t.Errorf("CodeTTL = %v, want 15m", cfg.CodeTTL)
	}
}
