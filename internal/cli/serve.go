package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finsheet/internal/bot"
	"finsheet/internal/config"
	apphttp "finsheet/internal/http"
	"finsheet/internal/log"
	"finsheet/internal/session"
	"finsheet/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when a token is set, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, appOptions{metrics: true, events: true})
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	// Make sure the current month exists before the first request.
	if rot, err := a.ledger.Rotate(ctx); err != nil {
		logger.Warn("Startup rotation failed", log.FieldError, err)
	} else {
		logger.Info("Active partition", log.FieldPartition, rot.Label, "rotated", rot.Rotated)
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:         ":" + a.cfg.Port,
		RateLimitRPS: a.cfg.RateLimitRPS,
		RateBurst:    a.cfg.RateLimitBurst,
		Metrics:      a.metrics,
		Logger:       logger,
	}, a.ledger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finsheet server", "port", a.cfg.Port, "backend", a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	if a.cfg.BotEnabled() {
		sessions, closeSessions, err := newSessionStore(ctx, a.cfg)
		if err != nil {
			return err
		}
		defer closeSessions()

		b := telegram.NewBot(telegram.Config{
			BaseURL:       a.cfg.TelegramAPIURL,
			Token:         a.cfg.TelegramBotToken,
			AllowedChatID: a.cfg.AllowedChatID,
			PollTimeout:   a.cfg.TelegramPollTimeout,
			Observer:      a.metrics,
		}, bot.New(a.ledger, sessions, logger), logger)
		g.Go(func() error {
			logger.Info("Starting Telegram bot", log.FieldChatID, a.cfg.AllowedChatID)
			return b.Run(gctx)
		})
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	err = g.Wait()
	logger.Info("Server stopped gracefully")
	return err
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func() error, error) {
	if cfg.SessionBackend != config.SessionRedis {
		return session.NewMemory(), func() error { return nil }, nil
	}
	r, err := session.NewRedis(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}
	return r, r.Close, nil
}
