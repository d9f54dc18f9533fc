// Package main provides the entrypoint for the Scenify development API server.
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

	"github.com/spf13/pflag"

	"github.com/scenify/scenify/internal/api"
	"github.com/scenify/scenify/internal/api/middleware"
	"github.com/scenify/scenify/internal/config"
	"github.com/scenify/scenify/internal/logging"
	"github.com/scenify/scenify/internal/planner"
	"github.com/scenify/scenify/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "scenify-devserver"

	fs := pflag.NewFlagSet(serviceName, pflag.ExitOnError)
	fs.Int("port", 5000, "port to listen on")
	fs.Duration("step-delay", 250*time.Millisecond, "pause after every progress message")
	fs.String("protocol", "ndjson", "progress shape for clients accepting both: ndjson or legacy")
	fs.Int("rate-limit", 30, "route computations per client IP per minute")
	fs.Duration("write-timeout", 5*time.Minute, "maximum duration of a streamed response")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "console", "log format: json or console")
	fs.Bool("otel", false, "export traces and metrics over OTLP")
	fs.String("otel-endpoint", "localhost:4317", "OTLP gRPC endpoint")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{
		Service: serviceName,
		Version: Version,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Scenify development server")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	routePlanner, err := planner.New(planner.Config{
		StepDelay: cfg.Server.StepDelay,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load gazetteer")
	}
	log.Info().
		Dur("step_delay", cfg.Server.StepDelay).
		Msg("planner initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Planner:     routePlanner,
		Protocol:    cfg.Server.Protocol,
		RateLimit:   cfg.Server.RateLimit,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("protocol", cfg.Server.Protocol).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
