package route

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// WireResultSet is the JSON body of a completed route request. A non-empty
// Error means the request failed and the route fields must be ignored.
type WireResultSet struct {
	FastestRoute *WireRoute `json:"fastest_route"`
	ScenicRoutes []WireRoute `json:"scenic_routes"`
	Error        string      `json:"error,omitempty"`
}

// WireRoute is the JSON form of a Route.
type WireRoute struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Distance    float64     `json:"distance"`
	Path        [][]float64 `json:"path"`
	Points      []WirePoint `json:"points"`
}

// WirePoint is the JSON form of a Point.
type WirePoint struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Type     string  `json:"type,omitempty"`
	Subtype  string  `json:"subtype,omitempty"`
	IsUNESCO bool    `json:"is_unesco,omitempty"`
	Role     string  `json:"role,omitempty"`
}

// ServerError is a failure the server reported in the body's error field.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// DecodeResultSet parses a response body. A non-empty error field is
// returned as a *ServerError. Missing collections become empty, malformed
// path entries are dropped and absent point roles are assigned by position.
func DecodeResultSet(data []byte) (*ResultSet, error) {
	var w WireResultSet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode result set: %w", err)
	}
	if w.Error != "" {
		return nil, &ServerError{Message: w.Error}
	}
	return w.ResultSet(), nil
}

// ResultSet converts the wire body to the domain model.
func (w *WireResultSet) ResultSet() *ResultSet {
	rs := &ResultSet{Scenic: make([]Route, 0, len(w.ScenicRoutes))}
	if w.FastestRoute != nil {
		r := w.FastestRoute.Route()
		rs.Fastest = &r
	}
	for _, wr := range w.ScenicRoutes {
		rs.Scenic = append(rs.Scenic, wr.Route())
	}
	return rs
}

// Route converts the wire route to the domain model.
func (w WireRoute) Route() Route {
	r := Route{
		Name:        w.Name,
		Description: w.Description,
		Distance:    w.Distance,
		Path:        make(orb.LineString, 0, len(w.Path)),
		Points:      make([]Point, 0, len(w.Points)),
	}
	if r.Distance < 0 {
		r.Distance = 0
	}
	for _, c := range w.Path {
		if len(c) < 2 {
			continue
		}
		r.Path = append(r.Path, orb.Point{c[0], c[1]})
	}
	last := len(w.Points) - 1
	for i, wp := range w.Points {
		p := Point{
			Name:     wp.Name,
			Lat:      wp.Lat,
			Lon:      wp.Lon,
			Type:     wp.Type,
			Subtype:  wp.Subtype,
			IsUNESCO: wp.IsUNESCO,
			Role:     Role(strings.ToLower(wp.Role)),
		}
		if !p.Role.Valid() {
			p.Role = positionalRole(i, last)
		}
		r.Points = append(r.Points, p)
	}
	return r
}

func positionalRole(i, last int) Role {
	if last >= 1 && (i == 0 || i == last) {
		return RoleEndpoint
	}
	return RolePOI
}

// ToWire converts a result set to its JSON body.
func ToWire(rs *ResultSet) WireResultSet {
	w := WireResultSet{ScenicRoutes: []WireRoute{}}
	if rs == nil {
		return w
	}
	if rs.Fastest != nil {
		fr := RouteToWire(*rs.Fastest)
		w.FastestRoute = &fr
	}
	for _, r := range rs.Scenic {
		w.ScenicRoutes = append(w.ScenicRoutes, RouteToWire(r))
	}
	return w
}

// RouteToWire converts a route to its JSON form, always emitting the role.
func RouteToWire(r Route) WireRoute {
	w := WireRoute{
		Name:        r.Name,
		Description: r.Description,
		Distance:    r.Distance,
		Path:        make([][]float64, 0, len(r.Path)),
		Points:      make([]WirePoint, 0, len(r.Points)),
	}
	for _, c := range r.Path {
		w.Path = append(w.Path, []float64{c.Lon(), c.Lat()})
	}
	for _, p := range r.Points {
		w.Points = append(w.Points, WirePoint{
			Name:     p.Name,
			Lat:      p.Lat,
			Lon:      p.Lon,
			Type:     p.Type,
			Subtype:  p.Subtype,
			IsUNESCO: p.IsUNESCO,
			Role:     string(p.Role),
		})
	}
	return w
}
