// Package main is the entry point for the rebooking trigger service.
//
// The service exposes POST /api/v1/rebookings, which re-purchases a paid website booking
// on the consolidator portal and answers with the run's result.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	rebookhttp "github.com/flight-search/consolidator-rebooking/internal/adapter/http"
	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/middleware"
	"github.com/flight-search/consolidator-rebooking/internal/bootstrap"
	"github.com/flight-search/consolidator-rebooking/internal/config"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
)

const (
	// shutdownTimeout leaves an in-flight run time to reach a terminal state.
	shutdownTimeout = 2 * time.Minute
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger with config
	appLog := setupLogger(cfg)

	log.Info().
		Str("env", cfg.App.Env).
		Int("port", cfg.Server.Port).
		Str("portal", cfg.Portal.URL).
		Str("lock_backend", cfg.Lock.Backend).
		Str("screenshot_sink", cfg.Screenshots.Sink).
		Msg("Configuration loaded")

	app, err := bootstrap.New(context.Background(), cfg, appLog)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rebooking service")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Configure server timeouts from config
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.Setup(e, appLog)

	handler := rebookhttp.NewRebookingHandler(app.UseCase, appLog)
	rebookhttp.RegisterRoutes(e, handler, promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		log.Info().Str("address", addr).Msg("Starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	gracefulShutdown(e, app)
}

// setupLogger configures the global zerolog logger based on config.
func setupLogger(cfg *config.Config) *logger.Logger {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	return logger.SetupGlobal(logCfg)
}

// gracefulShutdown handles graceful server shutdown on interrupt signals.
func gracefulShutdown(e *echo.Echo, app *bootstrap.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := app.Close(); err != nil {
		log.Error().Err(err).Msg("Error releasing resources")
	}

	log.Info().Msg("Server stopped")
}
