package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/uniusa/verify-bot/config"
	"github.com/uniusa/verify-bot/internal/discord"
	"github.com/uniusa/verify-bot/internal/email"
	"github.com/uniusa/verify-bot/internal/health"
	ctxlog "github.com/uniusa/verify-bot/internal/log"
	"github.com/uniusa/verify-bot/internal/metrics"
	"github.com/uniusa/verify-bot/internal/registry"
	"github.com/uniusa/verify-bot/internal/verification"
	"github.com/uniusa/verify-bot/internal/wildapricot"
)

const janitorInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Membership API
	store := wildapricot.NewFileStore(cfg.TokenFile)
	tokens := wildapricot.NewTokenSource(
		wildapricot.DefaultAuthURL, cfg.WAClientID, cfg.WAClientSecret,
		store, httpClient, logger,
	)
	directory := wildapricot.NewClient(
		wildapricot.DefaultBaseURL, cfg.WAAccountID, cfg.InviteURL,
		tokens, httpClient, logger,
	)

	// Verification flow
	codes := registry.New(cfg.CodeTTL, logger)
	go codes.StartJanitor(ctx, janitorInterval)

	sender := email.NewSender(
		senderProvider(cfg), cfg.ResendAPIKey, cfg.ResendFrom, cfg.InviteURL,
		directory, logger,
	)

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("discord session: %v", err)
	}

	roles := discord.NewGuildRoles(session, cfg.GuildID, cfg.VerifiedRoleID)
	verifier := verification.NewVerifier(directory, sender, roles, codes, logger)
	bot := discord.NewBot(session, verifier, cfg.JoinURL, logger)

	metrics.Register()
	checker := health.NewChecker(directory, logger, prometheus.DefaultRegisterer)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	if err := bot.Start(); err != nil {
		stop()
		log.Fatalf("bot: %v", err)
	}

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	if err := bot.Close(); err != nil {
		logger.Error("close gateway", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

// senderProvider forces the log sender in local dev regardless of the
// configured provider, so no real member ever gets emailed from a laptop.
func senderProvider(cfg *config.Config) string {
	if cfg.Env == "local" {
		return "log"
	}
	return cfg.EmailProvider
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
