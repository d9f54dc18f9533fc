// Package planner computes a fastest route and two scenic alternatives between
// two places using an embedded gazetteer of places, attractions and road
// geometries. It backs the development API server.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/scenify/scenify/internal/route"
	"github.com/scenify/scenify/pkg/polyline"
)

// Sentinel errors for planning.
var (
	// ErrMissingLocation indicates the start or end location was empty.
	ErrMissingLocation = errors.New("missing location")
	// ErrGeocode indicates a location could not be resolved.
	ErrGeocode = errors.New("location not found")
)

// Error carries the user-facing message the API returns for a failed plan.
type Error struct {
	Code    string // missing_location or geocode
	Message string // Returned verbatim in the error body
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Route names in the result set.
const (
	DirectRouteName   = "Direct Route"
	BalancedRouteName = "Balanced Scenic Route"
	MostScenicName    = "Most Scenic Route"
)

// Detour factors of the two scenic variants.
const (
	BalancedDetour   = 1.5
	MostScenicDetour = 2.0
)

// DefaultPOICount applies when a request asks for no attractions.
const DefaultPOICount = 15

// Request asks for routes between two free-text locations.
type Request struct {
	Start      string
	End        string
	POICount   int
	Categories []route.Filter
}

// EmitFunc receives progress messages while a plan is computed.
type EmitFunc func(msg string)

// Config holds configuration for the planner service.
type Config struct {
	// Gazetteer resolves places (default: the embedded fixture).
	Gazetteer *Gazetteer

	// StepDelay pauses after every progress message so clients can observe
	// the stream (default: none).
	StepDelay time.Duration

	// CacheTTL is how long computed plans are reused (default: 5 minutes).
	CacheTTL time.Duration

	// CleanupInterval is how often expired plans are removed (default: 5 minutes).
	CleanupInterval time.Duration

	// Logger for planner operations.
	Logger zerolog.Logger
}

// Service computes route result sets.
type Service struct {
	gazetteer       *Gazetteer
	stepDelay       time.Duration
	cacheTTL        time.Duration
	cleanupInterval time.Duration
	logger          zerolog.Logger

	mu          sync.RWMutex
	cache       map[string]*cachedPlan
	lastCleanup time.Time
}

type cachedPlan struct {
	result    *route.ResultSet
	expiresAt time.Time
}

// New creates a planner service.
func New(cfg Config) (*Service, error) {
	g := cfg.Gazetteer
	if g == nil {
		var err error
		if g, err = DefaultGazetteer(); err != nil {
			return nil, err
		}
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		gazetteer:       g,
		stepDelay:       cfg.StepDelay,
		cacheTTL:        cacheTTL,
		cleanupInterval: cleanupInterval,
		logger:          cfg.Logger,
		cache:           make(map[string]*cachedPlan),
	}, nil
}

// Plan computes the direct route and the balanced and most scenic
// alternatives. Progress messages are passed to emit in order; emit may be nil.
// The returned result set must not be modified.
func (s *Service) Plan(ctx context.Context, req Request, emit EmitFunc) (*route.ResultSet, error) {
	if emit == nil {
		emit = func(string) {}
	}

	startName := strings.TrimSpace(req.Start)
	endName := strings.TrimSpace(req.End)
	if startName == "" || endName == "" {
		return nil, &Error{Code: "missing_location", Message: "Start and end locations are required", Err: ErrMissingLocation}
	}

	start, ok := s.gazetteer.Lookup(startName)
	if !ok {
		return nil, geocodeError("start", startName)
	}
	end, ok := s.gazetteer.Lookup(endName)
	if !ok {
		return nil, geocodeError("end", endName)
	}

	poiCount := req.POICount
	if poiCount <= 0 {
		poiCount = DefaultPOICount
	}

	key := cacheKey(start, end, startName, endName, poiCount, req.Categories)
	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for plan")
		if err := s.step(ctx, emit, "Using previously computed routes"); err != nil {
			return nil, err
		}
		return cached.result, nil
	}
	s.mu.RUnlock()

	started := time.Now()
	rs, err := s.compute(ctx, start, end, startName, endName, poiCount, req.Categories, emit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = &cachedPlan{result: rs, expiresAt: time.Now().Add(s.cacheTTL)}
	s.cleanupIfNeeded()
	s.mu.Unlock()

	s.logger.Info().
		Str("start", start.Name).
		Str("end", end.Name).
		Int("poi_count", poiCount).
		Int("balanced_pois", rs.Scenic[0].Attractions()).
		Int("scenic_pois", rs.Scenic[1].Attractions()).
		Dur("duration", time.Since(started)).
		Msg("routes planned")

	return rs, nil
}

func (s *Service) compute(ctx context.Context, start, end Place, startName, endName string, poiCount int, filters []route.Filter, emit EmitFunc) (*route.ResultSet, error) {
	c := newCorridor(start.Coordinate(), end.Coordinate())

	if err := s.step(ctx, emit, "Searching for points of interest:"); err != nil {
		return nil, err
	}
	if err := s.step(ctx, emit, fmt.Sprintf("Corridor width: %.1fkm", c.width/1000)); err != nil {
		return nil, err
	}
	candidates := c.candidates(s.gazetteer.POIs(), filters)
	if err := s.step(ctx, emit, fmt.Sprintf("Found a number of %d POIs", len(candidates))); err != nil {
		return nil, err
	}

	variants := []struct {
		name, focus string
		detour      float64
		maxPOIs     int
	}{
		{BalancedRouteName, "prioritizing travel time", BalancedDetour, poiCount / 2},
		{MostScenicName, "maximizing attractions", MostScenicDetour, poiCount},
	}

	rs := &route.ResultSet{Scenic: make([]route.Route, 0, len(variants))}
	direct := s.itinerary(c, start, end, startName, endName, nil)
	direct.Name = DirectRouteName
	direct.Description = "Direct route from start to destination"
	rs.Fastest = &direct

	for _, v := range variants {
		msg := fmt.Sprintf("Calculating the scenic route with %d POIs and max detour factor %.1f", len(candidates), v.detour)
		if err := s.step(ctx, emit, msg); err != nil {
			return nil, err
		}
		selected := c.selectScenic(candidates, v.detour, v.maxPOIs)
		if err := s.step(ctx, emit, fmt.Sprintf("Selected %d POIs", len(selected))); err != nil {
			return nil, err
		}

		r := s.itinerary(c, start, end, startName, endName, selected)
		r.Name = v.name
		r.Description = fmt.Sprintf("Optimized route with %d points of interest, %s", len(selected), v.focus)
		rs.Scenic = append(rs.Scenic, r)
	}

	for _, r := range rs.Routes() {
		if err := s.step(ctx, emit, fmt.Sprintf("Final route distance: %.1fkm", r.Distance/1000)); err != nil {
			return nil, err
		}
	}

	return rs, nil
}

// itinerary builds a route through the attractions in order. A route with no
// attractions follows the known road between the places, or a straight line.
func (s *Service) itinerary(c corridor, start, end Place, startName, endName string, pois []POI) route.Route {
	points := make([]route.Point, 0, len(pois)+2)
	points = append(points, endpoint(startName, start))
	for _, p := range pois {
		points = append(points, p.Point())
	}
	points = append(points, endpoint(endName, end))

	var path orb.LineString
	if len(pois) == 0 {
		if road, ok := s.gazetteer.Road(start, end); ok {
			path = road
		}
	}
	if path == nil {
		path = make(orb.LineString, 0, len(points))
		for _, p := range points {
			path = append(path, p.Coordinate())
		}
	}

	return route.Route{
		Distance: polyline.Length(path),
		Path:     path,
		Points:   points,
	}
}

// step emits msg and waits for the configured step delay.
func (s *Service) step(ctx context.Context, emit EmitFunc, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	emit(msg)
	if s.stepDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.stepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cleanupIfNeeded removes expired plans. Caller must hold s.mu.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.expiresAt) {
			delete(s.cache, key)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up expired plans")
	}
}

// InvalidateCache drops every cached plan.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedPlan)
}

// CachedPlans returns the number of cached plans, expired or not.
func (s *Service) CachedPlans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func endpoint(name string, p Place) route.Point {
	return route.Point{Name: name, Lat: p.Lat, Lon: p.Lon, Role: route.RoleEndpoint}
}

func geocodeError(which, location string) error {
	return &Error{
		Code:    "geocode",
		Message: "Could not geocode " + which + " location: '" + location + "'.",
		Err:     ErrGeocode,
	}
}

// cacheKey identifies a plan by resolved places, display names, POI count and
// the sorted category set.
func cacheKey(start, end Place, startName, endName string, poiCount int, filters []route.Filter) string {
	cats := make([]string, 0, len(filters))
	for _, f := range filters {
		cats = append(cats, strings.ToLower(f.String()))
	}
	sort.Strings(cats)
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s", start.Name, end.Name, startName, endName, poiCount, strings.Join(cats, ","))
}
