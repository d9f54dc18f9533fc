// Package route defines the route result model shared by the request client,
// the map renderer and the selection controller.
package route

import (
	"github.com/paulmach/orb"
)

// Role marks whether a point is a trip endpoint or an attraction along the way.
type Role string

const (
	// RoleEndpoint is the start or destination of a route.
	RoleEndpoint Role = "endpoint"
	// RolePOI is a point of interest visited between the endpoints.
	RolePOI Role = "poi"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleEndpoint || r == RolePOI
}

// Point is a named stop on a route.
type Point struct {
	Name     string
	Lat      float64
	Lon      float64
	Type     string // empty when absent
	Subtype  string // empty when absent
	IsUNESCO bool
	Role     Role
}

// Coordinate returns the point as an (lon, lat) orb point.
func (p Point) Coordinate() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Category classifies the point using its type and subtype.
func (p Point) Category() Category {
	return CategoryOf(p.Type, p.Subtype)
}

// Route is one candidate itinerary.
type Route struct {
	// Name is unique within a result set and is the selection key.
	Name        string
	Description string
	// Distance is the total length in meters.
	Distance float64
	// Path is the ordered polyline in (lon, lat) order. May be empty.
	Path   orb.LineString
	Points []Point
}

// Renderable reports whether the route has enough points to be drawn.
func (r *Route) Renderable() bool {
	return r != nil && len(r.Points) >= 2
}

// Attractions counts the points of interest between the endpoints.
func (r *Route) Attractions() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, p := range r.Points {
		if p.Role == RolePOI {
			n++
		}
	}
	return n
}

// Bound returns the extent covering both the path and every point.
// The second value is false when the route has no coordinates at all.
func (r *Route) Bound() (orb.Bound, bool) {
	if r == nil {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, 0, len(r.Path)+len(r.Points))
	mp = append(mp, r.Path...)
	for _, p := range r.Points {
		mp = append(mp, p.Coordinate())
	}
	if len(mp) == 0 {
		return orb.Bound{}, false
	}
	return mp.Bound(), true
}

// ResultSet is the outcome of one successful route request.
type ResultSet struct {
	// Fastest is nil when the server returned no direct route.
	Fastest *Route
	// Scenic is ordered by display priority and never nil after decoding.
	Scenic []Route
}

// Routes lists every route in display order, fastest first.
func (s *ResultSet) Routes() []*Route {
	if s == nil {
		return nil
	}
	out := make([]*Route, 0, len(s.Scenic)+1)
	if s.Fastest != nil {
		out = append(out, s.Fastest)
	}
	for i := range s.Scenic {
		out = append(out, &s.Scenic[i])
	}
	return out
}

// Find returns the route with the given name.
func (s *ResultSet) Find(name string) (*Route, bool) {
	for _, r := range s.Routes() {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Empty reports whether the set holds no routes.
func (s *ResultSet) Empty() bool {
	return s == nil || (s.Fastest == nil && len(s.Scenic) == 0)
}
