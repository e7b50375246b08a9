package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mateoromerocontreras/django-bookstore/internal/config"
	"github.com/mateoromerocontreras/django-bookstore/internal/fakeapi"
	"github.com/mateoromerocontreras/django-bookstore/internal/observability"
)

func main() {
	latency := flag.Duration("latency", 0, "delay added to every API response")
	validate := flag.Bool("validate", true, "validate requests against the OpenAPI contract")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := observability.InitLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting fake storefront API")

	api, err := fakeapi.New(
		fakeapi.WithLogger(logger),
		fakeapi.WithAllowedOrigins(config.ParseOrigins(cfg.AllowedOrigins)),
		fakeapi.WithRequestValidation(*validate),
	)
	if err != nil {
		logger.Error("failed to build API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer api.Close()
	api.SetLatency(*latency)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("fake API listening",
			slog.String("port", cfg.Port),
			slog.String("demo_user", fakeapi.DemoUsername))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped gracefully")
}
