// Package mapview draws the selected route over a base map. The Renderer owns
// the map surface for its whole life and replaces the route overlay in a
// single step on every render.
package mapview

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/rs/zerolog"

	"github.com/scenify/scenify/internal/route"
)

const (
	// BaseLayerID is the id of the tile layer added on init.
	BaseLayerID = "osm"

	// DefaultTileURL is the OpenStreetMap tile template.
	DefaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

	overlayPrefix = "route-overlay-"
)

// Config holds configuration for the renderer.
type Config struct {
	// Factory creates the surface on Init (optional, defaults to a MemorySurface).
	Factory SurfaceFactory

	// TileURL is the base layer source (optional).
	TileURL string

	// Style controls drawing (optional, nil means DefaultStyle).
	Style *Style

	// Logger for renderer operations.
	Logger zerolog.Logger
}

// Renderer maintains one map surface and at most one route overlay on it.
// It is safe for concurrent use; renders are serialized.
type Renderer struct {
	factory SurfaceFactory
	tileURL string
	style   Style
	logger  zerolog.Logger

	mu        sync.Mutex
	surface   Surface
	overlayID string
	overlay   *geojson.FeatureCollection
	seq       int
}

// NewRenderer creates a renderer. No surface exists until Init or the first Render.
func NewRenderer(cfg Config) *Renderer {
	factory := cfg.Factory
	if factory == nil {
		factory = func() (Surface, error) { return NewMemorySurface(), nil }
	}

	tileURL := cfg.TileURL
	if tileURL == "" {
		tileURL = DefaultTileURL
	}

	style := DefaultStyle()
	if cfg.Style != nil {
		style = *cfg.Style
	}

	return &Renderer{
		factory: factory,
		tileURL: tileURL,
		style:   style,
		logger:  cfg.Logger,
	}
}

// Init creates the surface with its base layer and initial view. Calling it
// again while a surface exists does nothing.
func (r *Renderer) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initLocked()
}

func (r *Renderer) initLocked() error {
	if r.surface != nil {
		return nil
	}

	s, err := r.factory()
	if err != nil {
		return fmt.Errorf("creating map surface: %w", err)
	}
	if err := s.AddLayer(Layer{ID: BaseLayerID, Kind: LayerBase, TileURL: r.tileURL}); err != nil {
		_ = s.Close()
		return fmt.Errorf("adding base layer: %w", err)
	}
	if err := s.SetView(View{Center: project.WGS84.ToMercator(orb.Point{0, 0}), Zoom: 2}); err != nil {
		_ = s.Close()
		return fmt.Errorf("setting initial view: %w", err)
	}

	r.surface = s
	r.logger.Debug().Msg("map surface initialized")
	return nil
}

// Render shows rt on the map. A nil route or one with fewer than two points
// clears the overlay and leaves the viewport alone. Otherwise the previous
// overlay is replaced by a new one and the viewport animates to its extent.
func (r *Renderer) Render(rt *route.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.initLocked(); err != nil {
		return err
	}

	if !rt.Renderable() {
		return r.clearLocked()
	}

	fc := BuildOverlay(rt, r.style)
	r.seq++
	id := overlayPrefix + strconv.Itoa(r.seq)

	if err := r.clearLocked(); err != nil {
		return err
	}
	if err := r.surface.AddLayer(Layer{ID: id, Kind: LayerOverlay, Features: fc}); err != nil {
		return fmt.Errorf("adding route overlay: %w", err)
	}
	r.overlayID = id
	r.overlay = fc

	if b, ok := rt.Bound(); ok {
		extent := orb.Bound{
			Min: project.WGS84.ToMercator(b.Min),
			Max: project.WGS84.ToMercator(b.Max),
		}
		if err := r.surface.FitExtent(Fit{Extent: extent, Padding: r.style.Padding, Duration: r.style.FitDuration}); err != nil {
			return fmt.Errorf("fitting viewport: %w", err)
		}
	}

	r.logger.Debug().
		Str("route", rt.Name).
		Int("points", len(rt.Points)).
		Int("features", len(fc.Features)).
		Msg("route rendered")
	return nil
}

func (r *Renderer) clearLocked() error {
	if r.overlayID == "" {
		return nil
	}
	if err := r.surface.RemoveLayer(r.overlayID); err != nil {
		return fmt.Errorf("removing route overlay: %w", err)
	}
	r.overlayID = ""
	r.overlay = nil
	return nil
}

// Overlay returns the features currently drawn, or nil when no route is shown.
func (r *Renderer) Overlay() *geojson.FeatureCollection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlay
}

// ExportGeoJSON encodes the current overlay. An empty collection is returned
// when no route is shown.
func (r *Renderer) ExportGeoJSON() ([]byte, error) {
	fc := r.Overlay()
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	return fc.MarshalJSON()
}

// Dispose closes the surface. A later Init or Render creates a new one.
func (r *Renderer) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.surface == nil {
		return nil
	}
	err := r.surface.Close()
	r.surface = nil
	r.overlayID = ""
	r.overlay = nil
	r.logger.Debug().Msg("map surface disposed")
	if err != nil {
		return fmt.Errorf("closing map surface: %w", err)
	}
	return nil
}
