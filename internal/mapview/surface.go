package mapview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Surface errors.
var (
	ErrSurfaceClosed = errors.New("map surface is closed")
	ErrLayerNotFound = errors.New("layer not found")
	ErrLayerExists   = errors.New("layer already exists")
)

// LayerKind distinguishes the base map from drawn overlays.
type LayerKind string

// Layer kinds.
const (
	LayerBase    LayerKind = "base"
	LayerOverlay LayerKind = "overlay"
)

// Layer is one stacked map layer.
type Layer struct {
	ID   string
	Kind LayerKind
	// TileURL is the tile source template of a base layer.
	TileURL string
	// Features is the vector content of an overlay layer.
	Features *geojson.FeatureCollection
}

// View is a map center in Web Mercator meters and a zoom level.
type View struct {
	Center orb.Point
	Zoom   float64
}

// Padding is the screen space, in pixels, kept free around a fitted extent.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Fit animates the viewport so that Extent, in Web Mercator meters, is fully visible.
type Fit struct {
	Extent   orb.Bound
	Padding  Padding
	Duration time.Duration
}

// Surface is the live map drawing target. Only the Renderer mutates it.
type Surface interface {
	AddLayer(l Layer) error
	RemoveLayer(id string) error
	SetView(v View) error
	FitExtent(f Fit) error
	Close() error
}

// SurfaceFactory creates a new surface.
type SurfaceFactory func() (Surface, error)

// MemorySurface is an in-process Surface that records what was drawn.
type MemorySurface struct {
	mu     sync.Mutex
	layers []Layer
	view   View
	fits   []Fit
	log    []string
	closed bool
}

// NewMemorySurface creates an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

// AddLayer stacks l on top of the existing layers.
func (s *MemorySurface) AddLayer(l Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	for _, existing := range s.layers {
		if existing.ID == l.ID {
			return fmt.Errorf("%w: %s", ErrLayerExists, l.ID)
		}
	}
	s.layers = append(s.layers, l)
	s.log = append(s.log, "add "+l.ID)
	return nil
}

// RemoveLayer removes the layer with the given id.
func (s *MemorySurface) RemoveLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			s.log = append(s.log, "remove "+id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
}

// SetView jumps to v.
func (s *MemorySurface) SetView(v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	s.view = v
	s.log = append(s.log, "view")
	return nil
}

// FitExtent records f.
func (s *MemorySurface) FitExtent(f Fit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	s.fits = append(s.fits, f)
	s.log = append(s.log, "fit")
	return nil
}

// Close releases the surface. Further mutations fail.
func (s *MemorySurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	s.closed = true
	s.log = append(s.log, "close")
	return nil
}

// Layers returns the current layer stack, bottom first.
func (s *MemorySurface) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Layer(nil), s.layers...)
}

// Overlays returns only the overlay layers.
func (s *MemorySurface) Overlays() []Layer {
	var out []Layer
	for _, l := range s.Layers() {
		if l.Kind == LayerOverlay {
			out = append(out, l)
		}
	}
	return out
}

// View returns the last view set.
func (s *MemorySurface) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Fits returns every recorded fit, oldest first.
func (s *MemorySurface) Fits() []Fit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fit(nil), s.fits...)
}

// Log returns the mutation log, oldest first.
func (s *MemorySurface) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

// Closed reports whether Close was called.
func (s *MemorySurface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
