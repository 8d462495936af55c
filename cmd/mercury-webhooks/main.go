// Package main Mercury Webhooks API
//
// @title           Mercury Webhooks Service
// @version         1.0
// @description     Приём billing-событий Stripe и выпуск hosted-сессий для NumisGallery

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:3002
// @BasePath  /
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/numisgallery/mercury-webhooks/internal/app/webhooks"
	"github.com/numisgallery/mercury-webhooks/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting mercury-webhooks", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := webhooks.New(cfg, logger)

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("mercury-webhooks stopped gracefully")
}
