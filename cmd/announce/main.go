// announce posts the verification instructions message with the entry
// buttons to the configured channel, then exits.
// Run: go run ./cmd/announce
package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/uniusa/verify-bot/config"
	"github.com/uniusa/verify-bot/internal/discord"
	ctxlog "github.com/uniusa/verify-bot/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.VerificationChannelID == "" {
		log.Fatal("VERIFICATION_CHANNEL_ID is not set")
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("discord session: %v", err)
	}

	announcer := discord.NewAnnouncer(session, cfg.VerificationChannelID, cfg.JoinURL, logger)
	if err := announcer.Publish(); err != nil {
		log.Fatalf("announce: %v", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
