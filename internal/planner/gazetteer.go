package planner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/scenify/scenify/internal/route"
	"github.com/scenify/scenify/pkg/polyline"
)

//go:embed fixture.json
var defaultFixture []byte

// Place is a geocodable location.
type Place struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
}

// Coordinate returns the place as an (lon, lat) orb point.
func (p Place) Coordinate() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// POI is a candidate attraction.
type POI struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Type    string  `json:"type"`
	Subtype string  `json:"subtype"`
	UNESCO  bool    `json:"unesco,omitempty"`
	// Notable POIs are referenced by an encyclopedia entry.
	Notable bool `json:"notable,omitempty"`
}

// Coordinate returns the POI as an (lon, lat) orb point.
func (p POI) Coordinate() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Point converts the POI to a route point.
func (p POI) Point() route.Point {
	return route.Point{
		Name:     p.Name,
		Lat:      p.Lat,
		Lon:      p.Lon,
		Type:     p.Type,
		Subtype:  p.Subtype,
		IsUNESCO: p.UNESCO,
		Role:     route.RolePOI,
	}
}

type roadEntry struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Polyline string `json:"polyline"`
}

type fixture struct {
	Places []Place     `json:"places"`
	POIs   []POI       `json:"pois"`
	Roads  []roadEntry `json:"roads"`
}

// Gazetteer resolves place names and holds the attractions and road
// geometries known to the planner.
type Gazetteer struct {
	places map[string]Place
	pois   []POI
	roads  map[[2]string]orb.LineString
}

// DefaultGazetteer loads the embedded Central European fixture.
func DefaultGazetteer() (*Gazetteer, error) {
	return LoadGazetteer(defaultFixture)
}

// LoadGazetteer parses a JSON fixture with places, pois and encoded roads.
func LoadGazetteer(data []byte) (*Gazetteer, error) {
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	g := &Gazetteer{
		places: make(map[string]Place, len(fx.Places)),
		pois:   fx.POIs,
		roads:  make(map[[2]string]orb.LineString, len(fx.Roads)),
	}
	for _, p := range fx.Places {
		g.places[placeKey(p.Name)] = p
		for _, alias := range p.Aliases {
			g.places[placeKey(alias)] = p
		}
	}
	for _, r := range fx.Roads {
		from, ok := g.places[placeKey(r.From)]
		if !ok {
			return nil, fmt.Errorf("road %s-%s: unknown place %q", r.From, r.To, r.From)
		}
		to, ok := g.places[placeKey(r.To)]
		if !ok {
			return nil, fmt.Errorf("road %s-%s: unknown place %q", r.From, r.To, r.To)
		}
		ls, err := polyline.Decode(r.Polyline)
		if err != nil {
			return nil, fmt.Errorf("road %s-%s: %w", r.From, r.To, err)
		}
		if len(ls) < 2 {
			return nil, fmt.Errorf("road %s-%s: need at least two coordinates", r.From, r.To)
		}
		g.roads[[2]string{from.Name, to.Name}] = ls
	}

	return g, nil
}

// Lookup resolves a free-text location. Matching ignores case and anything
// after the first comma, so "Vienna, Austria" resolves to Vienna.
func (g *Gazetteer) Lookup(location string) (Place, bool) {
	key := placeKey(location)
	if p, ok := g.places[key]; ok {
		return p, true
	}
	if head, _, found := strings.Cut(key, ","); found {
		p, ok := g.places[strings.TrimSpace(head)]
		return p, ok
	}
	return Place{}, false
}

// POIs returns every known attraction.
func (g *Gazetteer) POIs() []POI {
	return g.pois
}

// Road returns the road geometry between two places, in travel order.
func (g *Gazetteer) Road(from, to Place) (orb.LineString, bool) {
	if ls, ok := g.roads[[2]string{from.Name, to.Name}]; ok {
		return ls.Clone(), true
	}
	if ls, ok := g.roads[[2]string{to.Name, from.Name}]; ok {
		rev := ls.Clone()
		rev.Reverse()
		return rev, true
	}
	return nil, false
}

func placeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
