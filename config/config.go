package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DiscordToken          string `env:"DISCORD_TOKEN,required" validate:"required"`
	GuildID               string `env:"GUILD_ID,required" validate:"required"`
	VerifiedRoleID        string `env:"VERIFIED_ROLE_ID,required" validate:"required"`
	VerificationChannelID string `env:"VERIFICATION_CHANNEL_ID"`

	WAAccountID    string `env:"WA_ACCOUNT_ID,required" validate:"required"`
	WAClientID     string `env:"WA_CLIENT_ID,required" validate:"required"`
	WAClientSecret string `env:"WA_CLIENT_SECRET,required" validate:"required"`
	TokenFile      string `env:"TOKEN_FILE" envDefault:"config.json" validate:"required"`

	// CodeTTL of zero keeps issued codes valid until consumed or overwritten.
	CodeTTL     time.Duration `env:"CODE_TTL" envDefault:"0"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s" validate:"min=1s,max=2m"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"wildapricot" validate:"oneof=wildapricot resend log"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	ResendFrom    string `env:"RESEND_FROM" validate:"required_if=EmailProvider resend"`

	InviteURL string `env:"INVITE_URL" envDefault:"https://discord.gg/9bDTNyruD2" validate:"url"`
	JoinURL   string `env:"JOIN_URL" envDefault:"https://uniusa.org/join-us" validate:"url"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
