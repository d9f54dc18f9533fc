// Package main provides the scenify command, which requests routes from the
// Scenify API, lists them and exports the selected one as GeoJSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/scenify/scenify/internal/config"
	"github.com/scenify/scenify/internal/logging"
	"github.com/scenify/scenify/internal/mapview"
	"github.com/scenify/scenify/internal/route"
	"github.com/scenify/scenify/internal/routeclient"
	"github.com/scenify/scenify/internal/selection"
	"github.com/scenify/scenify/internal/telemetry"
)

// Version is set at compile time via ldflags.
var Version = "dev"

const serviceName = "scenify"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Progress is printed from the fetch goroutine alongside log output.
	stderr = zerolog.SyncWriter(stderr)

	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	from := fs.String("from", "", "start location")
	to := fs.String("to", "", "destination")
	categories := fs.StringSlice("categories", nil, "type/subtype categories to include (default: all)")
	selectName := fs.String("select", "", "route to show after loading (default: the fastest)")
	out := fs.String("out", "", "write the shown route as GeoJSON to this file, - for stdout")
	fs.Int("poi-count", routeclient.DefaultPOICount, "number of points of interest")
	fs.String("api-url", routeclient.DefaultBaseURL, "API base URL")
	fs.Duration("timeout", routeclient.DefaultTimeout, "request timeout")
	fs.Uint64("retries", 2, "retries on gateway errors")
	fs.String("log-level", "warn", "log level")
	fs.String("log-format", "console", "log format: json or console")
	fs.Bool("otel", false, "export traces and metrics over OTLP")
	fs.String("otel-endpoint", "localhost:4317", "OTLP gRPC endpoint")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	filters, err := parseFilters(*categories)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log := logging.New(logging.Config{
		Service: serviceName,
		Version: Version,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Writer:  stderr,
	})

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	client := routeclient.NewClient(routeclient.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		Metrics:    tp.ClientMetrics,
		Tracer:     tp.Tracer,
		Logger:     log,
	})

	renderer := mapview.NewRenderer(mapview.Config{Logger: log})
	defer func() {
		if err := renderer.Dispose(); err != nil {
			log.Warn().Err(err).Msg("failed to dispose map")
		}
	}()

	printed := 0
	ctrl := selection.New(selection.Config{
		Fetcher:  client,
		Renderer: renderer,
		Metrics:  tp.ClientMetrics,
		Logger:   log,
		OnChange: func(s selection.Snapshot) {
			if s.Status != selection.StatusLoading {
				printed = 0
				return
			}
			for ; printed < len(s.ProgressLog); printed++ {
				fmt.Fprintln(stderr, "…", s.ProgressLog[printed])
			}
		},
	})
	defer ctrl.Close()

	done, err := ctrl.Submit(ctx, routeclient.Request{
		StartLocation: *from,
		EndLocation:   *to,
		POICount:      cfg.Planner.POICount,
		Categories:    filters,
	})
	if err != nil {
		printValidation(stderr, err)
		return exitUsage
	}

	select {
	case <-done:
	case <-ctx.Done():
		ctrl.Restart()
		fmt.Fprintln(stderr, "cancelled")
		return exitFailure
	}

	snap := ctrl.Snapshot()
	if snap.Status == selection.StatusError {
		fmt.Fprintln(stderr, snap.ErrorMessage)
		return exitFailure
	}
	if snap.Results.Empty() {
		fmt.Fprintln(stderr, "No routes found.")
		return exitFailure
	}

	if *selectName != "" {
		if err := ctrl.Select(*selectName); err != nil {
			fmt.Fprintf(stderr, "cannot select %q: %v\n", *selectName, err)
			return exitUsage
		}
		snap = ctrl.Snapshot()
	}

	printEntries(stdout, snap)

	if *out != "" {
		if err := export(renderer, *out, stdout); err != nil {
			log.Error().Err(err).Str("path", *out).Msg("failed to export route")
			return exitFailure
		}
	}

	return exitOK
}

func parseFilters(values []string) ([]route.Filter, error) {
	if len(values) == 0 {
		return route.DefaultFilters(), nil
	}
	filters := make([]route.Filter, 0, len(values))
	for _, v := range values {
		f, ok := route.ParseFilter(v)
		if !ok {
			return nil, fmt.Errorf("invalid category %q, want type/subtype", v)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func printValidation(w io.Writer, err error) {
	var ve *routeclient.ValidationError
	if !errors.As(err, &ve) {
		fmt.Fprintln(w, err)
		return
	}
	for _, fe := range ve.Errors {
		fmt.Fprintf(w, "%s: %s\n", fe.Field, fe.Message)
	}
}

func printEntries(w io.Writer, snap selection.Snapshot) {
	for _, e := range snap.Results.Entries() {
		marker := " "
		if e.Route == snap.Selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\n", marker, e.Summary())
		if e.Route != snap.Selected {
			continue
		}
		for _, p := range e.Route.Points {
			if p.Role != route.RolePOI {
				continue
			}
			fmt.Fprintf(w, "    %s %s\n", p.Category().Icon(), p.Name)
		}
	}
}

func export(r *mapview.Renderer, path string, stdout io.Writer) error {
	data, err := r.ExportGeoJSON()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
