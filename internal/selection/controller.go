// Package selection drives the route form workflow: it submits requests,
// collects progress, holds the result set and keeps the map in sync with the
// selected route.
package selection

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scenify/scenify/internal/route"
	"github.com/scenify/scenify/internal/routeclient"
	"github.com/scenify/scenify/internal/telemetry"
)

// Selection errors.
var (
	// ErrNotReady is returned by Select outside the Ready state.
	ErrNotReady = errors.New("no results to select from")
	// ErrUnknownRoute is returned by Select for a name not in the results.
	ErrUnknownRoute = errors.New("route is not part of the current results")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("controller is closed")
)

// Status is the workflow state.
type Status string

// Workflow states.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Fetcher submits a route request. routeclient.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req routeclient.Request, onProgress routeclient.ProgressFunc) (*route.ResultSet, error)
}

// Renderer shows a route on the map; nil clears it. mapview.Renderer implements it.
type Renderer interface {
	Render(rt *route.Route) error
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Status     Status
	Generation uint64
	Results    *route.ResultSet
	Selected   *route.Route
	// ErrorMessage is the user-facing message in the Error state.
	ErrorMessage string
	Err          error
	// ProgressLog holds every progress message of the current request.
	ProgressLog []string
}

// LatestProgress returns the newest progress message, if any.
func (s Snapshot) LatestProgress() string {
	if len(s.ProgressLog) == 0 {
		return ""
	}
	return s.ProgressLog[len(s.ProgressLog)-1]
}

// Config holds configuration for the controller.
type Config struct {
	// Fetcher performs route requests (required).
	Fetcher Fetcher

	// Renderer receives the selected route (optional).
	Renderer Renderer

	// OnChange receives a snapshot after every state change. It runs while
	// the controller is locked and must not call back into it.
	OnChange func(Snapshot)

	// Metrics counts discarded results (optional).
	Metrics *telemetry.ClientMetrics

	// Logger for controller operations.
	Logger zerolog.Logger
}

// Controller owns the selection state. All transitions are serialized, and
// a completion is applied only if no newer submit or restart happened since
// its request started.
type Controller struct {
	fetcher  Fetcher
	renderer Renderer
	onChange func(Snapshot)
	metrics  *telemetry.ClientMetrics
	logger   zerolog.Logger

	mu     sync.Mutex
	state  Snapshot
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// New creates a controller in the Idle state.
func New(cfg Config) *Controller {
	return &Controller{
		fetcher:  cfg.Fetcher,
		renderer: cfg.Renderer,
		onChange: cfg.OnChange,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		state:    Snapshot{Status: StatusIdle},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.state
	s.ProgressLog = append([]string(nil), c.state.ProgressLog...)
	return s
}

// Submit starts a new request from any state. An invalid request returns a
// *routeclient.ValidationError and leaves the state unchanged. Otherwise the
// previous request is abandoned, results are cleared and the returned channel
// closes once the new request has completed.
func (c *Controller) Submit(ctx context.Context, req routeclient.Request) (<-chan struct{}, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.resetLocked(StatusLoading)
	gen := c.state.Generation
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Info().
		Uint64("generation", gen).
		Str("start", req.StartLocation).
		Str("end", req.EndLocation).
		Msg("route request submitted")

	done := make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()

		rs, err := c.fetcher.Fetch(reqCtx, req, func(msg string) {
			c.progress(gen, msg)
		})
		c.complete(ctx, gen, rs, err)
	}()

	return done, nil
}

// Select shows the named route. It is only valid in the Ready state.
func (c *Controller) Select(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusReady {
		return ErrNotReady
	}
	rt, ok := c.state.Results.Find(name)
	if !ok {
		return ErrUnknownRoute
	}
	c.state.Selected = rt
	c.renderLocked(rt)
	c.notifyLocked()
	return nil
}

// Restart returns to Idle from any state, abandoning any request in flight.
func (c *Controller) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked(StatusIdle)
	c.notifyLocked()
	c.logger.Debug().Uint64("generation", c.state.Generation).Msg("selection restarted")
}

// Close abandons any request in flight and waits for its goroutine to exit.
// The abandoned request's completion is discarded as stale. The current
// state is kept for inspection.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// resetLocked clears everything, bumps the generation and clears the map.
func (c *Controller) resetLocked(status Status) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = Snapshot{
		Status:     status,
		Generation: c.state.Generation + 1,
	}
	c.renderLocked(nil)
}

func (c *Controller) progress(gen uint64, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.state.Generation || c.state.Status != StatusLoading {
		return
	}
	c.state.ProgressLog = append(c.state.ProgressLog, msg)
	c.notifyLocked()
}

func (c *Controller) complete(ctx context.Context, gen uint64, rs *route.ResultSet, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.state.Generation {
		c.metrics.AddStale(ctx)
		c.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", c.state.Generation).
			Msg("discarding stale route result")
		return
	}
	c.cancel = nil

	if err != nil {
		c.state.Status = StatusError
		c.state.Err = err
		c.state.ErrorMessage = routeclient.UserMessage(err)
		c.notifyLocked()
		return
	}

	if rs == nil {
		rs = &route.ResultSet{Scenic: []route.Route{}}
	}
	c.state.Status = StatusReady
	c.state.Results = rs
	c.state.Selected = rs.Fastest
	c.renderLocked(rs.Fastest)
	c.notifyLocked()
}

func (c *Controller) renderLocked(rt *route.Route) {
	if c.renderer == nil {
		return
	}
	if err := c.renderer.Render(rt); err != nil {
		c.logger.Warn().Err(err).Msg("failed to render route")
	}
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.snapshotLocked())
	}
}
