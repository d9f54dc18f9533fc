// Package routeclient submits route requests to the Scenify API and streams
// progress back to the caller while the server computes.
package routeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scenify/scenify/internal/progress"
	"github.com/scenify/scenify/internal/provider/resilience"
	"github.com/scenify/scenify/internal/route"
	"github.com/scenify/scenify/internal/telemetry"
)

const (
	// ClientName identifies this client in logs and breaker state.
	ClientName = "scenify-api"

	// DefaultBaseURL is the API base URL used by the development server.
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultTimeout bounds a whole request, streaming included.
	DefaultTimeout = 5 * time.Minute

	// RequestIDHeader carries the client generated request ID.
	RequestIDHeader = "X-Request-Id"

	tracerName = "github.com/scenify/scenify/internal/routeclient"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the route client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client that retries gateway failures.
	HTTPClient HTTPDoer

	// Timeout bounds each request (optional, defaults to DefaultTimeout).
	Timeout time.Duration

	// MaxRetries applies to the default resilient client.
	MaxRetries uint64

	// Marker delimits legacy progress fragments (optional).
	Marker progress.Marker

	// Metrics records request instruments (optional).
	Metrics *telemetry.ClientMetrics

	// Tracer opens a span per request (optional).
	Tracer trace.Tracer

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Scenify API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	timeout    time.Duration
	scanner    *progress.Scanner
	metrics    *telemetry.ClientMetrics
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient creates a new route client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ClientName)
		clientCfg.MaxRetries = cfg.MaxRetries
		clientCfg.Retryable = resilience.RetryOnGateway
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer(tracerName)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		scanner:    progress.NewScanner(cfg.Marker),
		metrics:    cfg.Metrics,
		tracer:     tracer,
		logger:     cfg.Logger,
	}
}

// Fetch validates req, submits it and blocks until the server finishes.
// onProgress, when non-nil, receives progress messages while the response
// streams; every delivery has completed by the time Fetch returns. Failures
// are a *ValidationError or an *Error.
func (c *Client) Fetch(ctx context.Context, req Request, onProgress ProgressFunc) (*route.ResultSet, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := "req_" + uuid.New().String()
	ctx, span := c.tracer.Start(ctx, "routeclient.Fetch", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.Int("poi.count", req.POICount),
		attribute.Int("categories", len(req.Categories)),
	))
	defer span.End()

	start := time.Now()
	logger := c.logger.With().Str("request_id", requestID).Logger()
	logger.Debug().
		Str("start", req.StartLocation).
		Str("end", req.EndLocation).
		Int("poi_count", req.POICount).
		Msg("requesting routes")

	rs, err := c.fetch(ctx, req, requestID, onProgress)
	duration := time.Since(start)

	if err != nil {
		outcome := outcomeOf(err)
		span.SetStatus(codes.Error, outcome)
		span.RecordError(err)
		c.metrics.RecordRequest(ctx, duration, outcome)
		logger.Warn().Err(err).Str("outcome", outcome).Dur("duration", duration).Msg("route request failed")
		return nil, err
	}

	c.metrics.RecordRequest(ctx, duration, "success")
	logger.Info().
		Int("routes", len(rs.Routes())).
		Dur("duration", duration).
		Msg("routes received")
	return rs, nil
}

func (c *Client) fetch(ctx context.Context, req Request, requestID string, onProgress ProgressFunc) (*route.ResultSet, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/routes", bytes.NewReader(body))
	if err != nil {
		return nil, transportError(0, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", progress.ContentTypeNDJSON+", application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(0, err)
	}
	defer resp.Body.Close()

	// Legacy ticks re-report the latest fragment, so only they coalesce.
	framed := isFramed(resp.Header.Get("Content-Type"))
	mb := newMailbox(onProgress, !framed)
	var posted int
	post := func(msg string) {
		if mb.post(msg) {
			posted++
		}
	}
	defer func() {
		mb.close()
		c.metrics.AddProgress(ctx, posted)
	}()

	if framed {
		return c.readFramed(ctx, resp, post)
	}
	return c.readLegacy(resp, post)
}

func isFramed(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == progress.ContentTypeNDJSON
}

func (c *Client) readLegacy(resp *http.Response, post func(string)) (*route.ResultSet, error) {
	var buf []byte
	for tick, err := range c.scanner.Ticks(resp.Body) {
		if err != nil {
			return nil, transportError(resp.StatusCode, fmt.Errorf("reading response: %w", err))
		}
		buf = tick.Buffer
		if tick.HasMessage {
			post(tick.Message)
		}
	}
	return complete(resp.StatusCode, c.scanner.Payload(buf))
}

func (c *Client) readFramed(ctx context.Context, resp *http.Response, post func(string)) (*route.ResultSet, error) {
	dec := progress.NewDecoder(resp.Body)
	defer func() {
		if n := dec.Skipped(); n > 0 {
			c.metrics.AddNoise(ctx, n)
			c.logger.Debug().Int("skipped", n).Msg("skipped malformed progress frames")
		}
	}()

	for {
		f, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil, transportError(resp.StatusCode, errors.New("stream ended without a result"))
		}
		if err != nil {
			return nil, transportError(resp.StatusCode, fmt.Errorf("reading response: %w", err))
		}

		switch f.Type {
		case progress.FrameProgress:
			post(f.Message)
		case progress.FrameError:
			return nil, serverError(f.Error, resp.StatusCode)
		case progress.FrameResult:
			return complete(resp.StatusCode, f.Raw)
		}
	}
}

// complete turns the final document into a result or a typed error.
func complete(status int, payload []byte) (*route.ResultSet, error) {
	rs, err := route.DecodeResultSet(payload)
	var reported *route.ServerError
	if errors.As(err, &reported) {
		return nil, serverError(reported.Message, status)
	}
	if err != nil {
		return nil, transportError(status, fmt.Errorf("decoding response: %w", err))
	}
	if status < 200 || status >= 300 {
		return nil, transportError(status, fmt.Errorf("unexpected status %d", status))
	}
	return rs, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrGeocode):
		return "geocode"
	case errors.Is(err, ErrServerCompute):
		return "server"
	default:
		return "transport"
	}
}
