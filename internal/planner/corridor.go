package planner

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/scenify/scenify/internal/route"
)

// Corridor limits for attraction search.
const (
	// MinProximity excludes attractions this close to either endpoint, in meters.
	MinProximity = 30_000
	// MinSpacing is the smallest allowed gap between two selected attractions, in meters.
	MinSpacing   = 5_000
	// SearchDetour is the detour factor an attraction must satisfy to be a candidate.
	SearchDetour = 2.0
)

const (
	minCorridor     = 50_000
	maxCorridor     = 250_000
	metersPerDegree = 111_000
)

// corridor is the search area around the straight line between two places.
type corridor struct {
	start, end orb.Point
	direct     float64
	bound      orb.Bound
	width      float64
}

func newCorridor(start, end orb.Point) corridor {
	direct := geo.DistanceHaversine(start, end)
	width := math.Min(maxCorridor, math.Max(minCorridor, direct*0.2))

	midLat := (start.Lat() + end.Lat()) / 2
	latPad := width / metersPerDegree
	lonPad := width / (metersPerDegree * math.Cos(midLat*math.Pi/180))

	b := orb.MultiPoint{start, end}.Bound()
	b.Min = orb.Point{b.Min.Lon() - lonPad, b.Min.Lat() - latPad}
	b.Max = orb.Point{b.Max.Lon() + lonPad, b.Max.Lat() + latPad}

	return corridor{start: start, end: end, direct: direct, bound: b, width: width}
}

// admits reports whether visiting p is a reasonable detour: inside the search
// area, away from both endpoints, within the detour factor and between the
// endpoints along the dominant direction of travel.
func (c corridor) admits(p orb.Point, detour float64) bool {
	if !c.bound.Contains(p) {
		return false
	}
	fromStart := geo.DistanceHaversine(c.start, p)
	toEnd := geo.DistanceHaversine(p, c.end)
	if fromStart < MinProximity || toEnd < MinProximity {
		return false
	}
	if fromStart+toEnd > c.direct*detour {
		return false
	}

	if math.Abs(c.end.Lat()-c.start.Lat()) > math.Abs(c.end.Lon()-c.start.Lon()) {
		return between(p.Lat(), c.start.Lat(), c.end.Lat())
	}
	return between(p.Lon(), c.start.Lon(), c.end.Lon())
}

// progress is the position of p projected onto the start-end line: 0 at the
// start, 1 at the end.
func (c corridor) progress(p orb.Point) float64 {
	dx := c.end.Lon() - c.start.Lon()
	dy := c.end.Lat() - c.start.Lat()
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0
	}
	return ((p.Lon()-c.start.Lon())*dx + (p.Lat()-c.start.Lat())*dy) / lenSq
}

// offset is the distance in meters from p to its projection on the line.
func (c corridor) offset(p orb.Point) float64 {
	t := c.progress(p)
	proj := orb.Point{
		c.start.Lon() + t*(c.end.Lon()-c.start.Lon()),
		c.start.Lat() + t*(c.end.Lat()-c.start.Lat()),
	}
	return geo.DistanceHaversine(p, proj)
}

// candidates returns the attractions inside the corridor that match the
// requested categories, most significant first. UNESCO sites are always kept.
// An empty filter set keeps everything.
func (c corridor) candidates(pois []POI, filters []route.Filter) []POI {
	var out []POI
	for _, poi := range pois {
		if !poi.UNESCO && len(filters) > 0 && !matchesAny(poi, filters) {
			continue
		}
		if !c.admits(poi.Coordinate(), SearchDetour) {
			continue
		}
		out = append(out, poi)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UNESCO != out[j].UNESCO {
			return out[i].UNESCO
		}
		return out[i].Notable && !out[j].Notable
	})
	return out
}

// selectScenic picks up to maxPOIs attractions whose ordered itinerary stays
// within detour times the direct distance. The result is in travel order.
func (c corridor) selectScenic(pois []POI, detour float64, maxPOIs int) []POI {
	if maxPOIs <= 0 || len(pois) == 0 {
		return nil
	}

	spaced := spaceOut(pois, MinSpacing)
	score := func(p POI) float64 {
		base := 0.0
		switch {
		case p.UNESCO:
			base = 3000
		case p.Notable:
			base = 1000
		}
		return base - c.offset(p.Coordinate())/1000
	}
	sort.SliceStable(spaced, func(i, j int) bool {
		return score(spaced[i]) > score(spaced[j])
	})

	limit := c.direct * detour
	var selected []POI
	for _, poi := range spaced {
		if len(selected) >= maxPOIs {
			break
		}
		trial := c.order(append(append([]POI(nil), selected...), poi))
		if c.length(trial) <= limit {
			selected = trial
		}
	}
	return selected
}

// order sorts attractions by their progress along the direct line.
func (c corridor) order(pois []POI) []POI {
	sort.SliceStable(pois, func(i, j int) bool {
		return c.progress(pois[i].Coordinate()) < c.progress(pois[j].Coordinate())
	})
	return pois
}

// length is the great-circle length of start, pois..., end.
func (c corridor) length(pois []POI) float64 {
	ls := make(orb.LineString, 0, len(pois)+2)
	ls = append(ls, c.start)
	for _, p := range pois {
		ls = append(ls, p.Coordinate())
	}
	ls = append(ls, c.end)
	return geo.LengthHaversine(ls)
}

// spaceOut drops attractions closer than minDist to one already kept,
// preferring notable ones.
func spaceOut(pois []POI, minDist float64) []POI {
	sorted := append([]POI(nil), pois...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Notable && !sorted[j].Notable
	})

	var kept []POI
	for _, poi := range sorted {
		tooClose := false
		for _, k := range kept {
			if geo.DistanceHaversine(poi.Coordinate(), k.Coordinate()) < minDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, poi)
		}
	}
	return kept
}

func matchesAny(poi POI, filters []route.Filter) bool {
	p := poi.Point()
	for _, f := range filters {
		if f.Matches(p) {
			return true
		}
	}
	return false
}

func between(v, a, b float64) bool {
	if a > b {
		a, b = b, a
	}
	return v >= a && v <= b
}
