package mapview

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/scenify/scenify/internal/route"
)

// Feature kinds stored in the "kind" property.
const (
	KindPath   = "path"
	KindMarker = "marker"
)

// MarkerStyle is the circle drawn for a point.
type MarkerStyle struct {
	Radius      float64
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Style controls overlay drawing and viewport fitting.
type Style struct {
	PathStroke  string
	PathWidth   float64
	Start       MarkerStyle
	End         MarkerStyle
	Interior    MarkerStyle
	Padding     Padding
	FitDuration time.Duration
}

// DefaultStyle returns the route overlay style.
func DefaultStyle() Style {
	return Style{
		PathStroke: "#4CAF50",
		PathWidth:  3,
		Start:      MarkerStyle{Radius: 8, Fill: "#2196F3", Stroke: "#1976D2", StrokeWidth: 2},
		End:        MarkerStyle{Radius: 8, Fill: "#4CAF50", Stroke: "#388E3C", StrokeWidth: 2},
		Interior:   MarkerStyle{Radius: 6, Fill: "#FFFFFF", Stroke: "#F44336", StrokeWidth: 2},
		Padding:    Padding{Top: 50, Right: 50, Bottom: 50, Left: 50},
		// Constant regardless of the distance travelled.
		FitDuration: time.Second,
	}
}

// markerStyle picks the style by position in the point list.
func (s Style) markerStyle(i, n int) MarkerStyle {
	switch i {
	case 0:
		return s.Start
	case n - 1:
		return s.End
	default:
		return s.Interior
	}
}

// BuildOverlay builds the feature collection for r: the path when it has at
// least two coordinates, then one marker per point.
func BuildOverlay(r *route.Route, style Style) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if r == nil {
		return fc
	}

	if len(r.Path) >= 2 {
		path := geojson.NewFeature(append(orb.LineString(nil), r.Path...))
		path.Properties["kind"] = KindPath
		path.Properties["route"] = r.Name
		path.Properties["stroke"] = style.PathStroke
		path.Properties["stroke-width"] = style.PathWidth
		fc.Append(path)
	}

	for i, p := range r.Points {
		ms := style.markerStyle(i, len(r.Points))
		category := p.Category()

		marker := geojson.NewFeature(p.Coordinate())
		marker.Properties["kind"] = KindMarker
		marker.Properties["index"] = i
		marker.Properties["name"] = p.Name
		marker.Properties["role"] = string(p.Role)
		marker.Properties["category"] = string(category)
		marker.Properties["icon"] = string(category.Icon())
		marker.Properties["unesco"] = p.IsUNESCO
		marker.Properties["marker-radius"] = ms.Radius
		marker.Properties["marker-fill"] = ms.Fill
		marker.Properties["marker-stroke"] = ms.Stroke
		marker.Properties["marker-stroke-width"] = ms.StrokeWidth
		if p.Type != "" {
			marker.Properties["type"] = p.Type
		}
		if p.Subtype != "" {
			marker.Properties["subtype"] = p.Subtype
		}
		fc.Append(marker)
	}

	return fc
}
