package route_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenify/scenify/internal/route"
)

func TestDecodeResultSet_Full(t *testing.T) {
	body := []byte(`{
		"fastest_route": {
			"name": "A",
			"description": "Direct",
			"distance": 12000,
			"path": [[21.9, 47.0], [16.3, 48.2]],
			"points": [
				{"name": "Oradea", "lat": 47.0, "lon": 21.9},
				{"name": "Vienna", "lat": 48.2, "lon": 16.3}
			]
		},
		"scenic_routes": [{
			"name": "B",
			"description": "Scenic",
			"distance": 15000,
			"path": [[21.9, 47.0], [19.0, 47.5], [16.3, 48.2]],
			"points": [
				{"name": "Oradea", "lat": 47.0, "lon": 21.9},
				{"name": "Buda Castle", "lat": 47.5, "lon": 19.0, "type": "historic", "subtype": "Castle", "is_unesco": true},
				{"name": "Vienna", "lat": 48.2, "lon": 16.3}
			]
		}]
	}`)

	rs, err := route.DecodeResultSet(body)
	require.NoError(t, err)
	require.NotNil(t, rs.Fastest)
	assert.Equal(t, "A", rs.Fastest.Name)
	assert.Equal(t, orb.LineString{{21.9, 47.0}, {16.3, 48.2}}, rs.Fastest.Path)
	require.Len(t, rs.Scenic, 1)

	scenic := rs.Scenic[0]
	assert.Equal(t, route.RoleEndpoint, scenic.Points[0].Role)
	assert.Equal(t, route.RolePOI, scenic.Points[1].Role)
	assert.Equal(t, route.RoleEndpoint, scenic.Points[2].Role)
	assert.True(t, scenic.Points[1].IsUNESCO)
	assert.Equal(t, route.CategoryCastle, scenic.Points[1].Category())
	assert.Equal(t, 1, scenic.Attractions())
}

func TestDecodeResultSet_Defaults(t *testing.T) {
	rs, err := route.DecodeResultSet([]byte(`{"fastest_route": null}`))
	require.NoError(t, err)

	assert.Nil(t, rs.Fastest)
	assert.NotNil(t, rs.Scenic)
	assert.Empty(t, rs.Scenic)
	assert.True(t, rs.Empty())
}

func TestDecodeResultSet_DropsMalformedPathEntries(t *testing.T) {
	body := []byte(`{"scenic_routes": [{"name": "S", "distance": -5, "path": [[1, 2], [3], [], [4, 5, 6]], "points": []}]}`)

	rs, err := route.DecodeResultSet(body)
	require.NoError(t, err)
	require.Len(t, rs.Scenic, 1)

	r := rs.Scenic[0]
	assert.Equal(t, orb.LineString{{1, 2}, {4, 5}}, r.Path)
	assert.Zero(t, r.Distance)
	assert.False(t, r.Renderable())
}

func TestDecodeResultSet_ExplicitRoleWins(t *testing.T) {
	body := []byte(`{"scenic_routes": [{"name": "S", "points": [
		{"name": "Start", "lat": 0, "lon": 0, "role": "endpoint"},
		{"name": "Start Square", "lat": 1, "lon": 1, "role": "poi"},
		{"name": "End", "lat": 2, "lon": 2, "role": "ENDPOINT"}
	]}]}`)

	rs, err := route.DecodeResultSet(body)
	require.NoError(t, err)

	points := rs.Scenic[0].Points
	assert.Equal(t, route.RolePOI, points[1].Role)
	assert.Equal(t, route.RoleEndpoint, points[2].Role)
}

func TestDecodeResultSet_SinglePointIsPOI(t *testing.T) {
	rs, err := route.DecodeResultSet([]byte(`{"scenic_routes": [{"name": "S", "points": [{"name": "Only", "lat": 0, "lon": 0}]}]}`))
	require.NoError(t, err)

	assert.Equal(t, route.RolePOI, rs.Scenic[0].Points[0].Role)
}

func TestDecodeResultSet_InvalidJSON(t *testing.T) {
	_, err := route.DecodeResultSet([]byte(`{"fastest_route": `))
	assert.Error(t, err)
}

func TestDecodeResultSet_ServerError(t *testing.T) {
	rs, err := route.DecodeResultSet([]byte(`{"error": "Could not geocode start location: 'Atlantis'."}`))
	require.Error(t, err)
	assert.Nil(t, rs)

	var serverErr *route.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "Could not geocode start location: 'Atlantis'.", serverErr.Message)
}

func TestToWire_RoundTripKeepsRoles(t *testing.T) {
	rs := &route.ResultSet{
		Fastest: &route.Route{
			Name:   "A",
			Path:   orb.LineString{{1, 2}, {3, 4}},
			Points: []route.Point{{Name: "x", Role: route.RoleEndpoint}, {Name: "y", Role: route.RoleEndpoint}},
		},
	}

	w := route.ToWire(rs)
	require.NotNil(t, w.FastestRoute)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, w.FastestRoute.Path)
	assert.Equal(t, "endpoint", w.FastestRoute.Points[0].Role)
	assert.NotNil(t, w.ScenicRoutes)

	back := w.ResultSet()
	assert.Equal(t, rs.Fastest.Points, back.Fastest.Points)
}

func TestResultSet_FindAndRoutes(t *testing.T) {
	rs := &route.ResultSet{
		Fastest: &route.Route{Name: "A"},
		Scenic:  []route.Route{{Name: "B"}, {Name: "C"}},
	}

	names := make([]string, 0, 3)
	for _, r := range rs.Routes() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)

	got, ok := rs.Find("C")
	require.True(t, ok)
	assert.Same(t, &rs.Scenic[1], got)

	_, ok = rs.Find("Z")
	assert.False(t, ok)

	var nilSet *route.ResultSet
	_, ok = nilSet.Find("A")
	assert.False(t, ok)
}

func TestRoute_Bound(t *testing.T) {
	r := &route.Route{
		Path:   orb.LineString{{1, 1}, {2, 2}},
		Points: []route.Point{{Lon: -1, Lat: 5}},
	}

	b, ok := r.Bound()
	require.True(t, ok)
	assert.Equal(t, orb.Point{-1, 1}, b.Min)
	assert.Equal(t, orb.Point{2, 5}, b.Max)

	_, ok = (&route.Route{}).Bound()
	assert.False(t, ok)
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		subtype string
		want    route.Category
		icon    route.Icon
	}{
		{"unesco", "", "UNESCO Site", route.CategoryUNESCOSite, route.IconLandmark},
		{"castle", "historic", "Castle", route.CategoryCastle, route.IconCastle},
		{"church", "historic", "church", route.CategoryChurch, route.IconChurch},
		{"ruins", "historic", "Archaeological Site", route.CategoryArchaeologicalSite, route.IconRuins},
		{"peak", "natural", "Peak", route.CategoryPeak, route.IconMountain},
		{"waterfall", "waterway", "Waterfall", route.CategoryWaterfall, route.IconWater},
		{"bay", "natural", "Bay", route.CategoryBay, route.IconBeach},
		{"leisure park", "leisure", "Park", route.CategoryPark, route.IconPark},
		{"park without leisure", "tourism", "Park", route.CategoryUnknown, route.IconLocation},
		{"gallery", "tourism", " Gallery ", route.CategoryGallery, route.IconMuseum},
		{"viewpoint", "tourism", "Viewpoint", route.CategoryViewpoint, route.IconCamera},
		{"unknown", "amenity", "Cafe", route.CategoryUnknown, route.IconLocation},
		{"empty", "", "", route.CategoryUnknown, route.IconLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := route.CategoryOf(tt.typ, tt.subtype)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.icon, got.Icon())
		})
	}
}

func TestFilter(t *testing.T) {
	f, ok := route.ParseFilter(" Historic/Castle ")
	require.True(t, ok)
	assert.Equal(t, route.Filter{Type: "historic", Subtype: "castle"}, f)
	assert.Equal(t, "historic/castle", f.String())
	assert.True(t, f.Matches(route.Point{Type: "historic", Subtype: "Castle"}))
	assert.False(t, f.Matches(route.Point{Type: "historic", Subtype: "Palace"}))

	_, ok = route.ParseFilter("castle")
	assert.False(t, ok)
	_, ok = route.ParseFilter("historic/")
	assert.False(t, ok)

	assert.Len(t, route.DefaultFilters(), 15)
}

func TestEntries(t *testing.T) {
	rs := &route.ResultSet{
		Fastest: &route.Route{Name: "A", Distance: 12345},
		Scenic: []route.Route{
			{Name: "B", Distance: 20000, Points: []route.Point{
				{Role: route.RoleEndpoint}, {Role: route.RolePOI}, {Role: route.RolePOI}, {Role: route.RoleEndpoint},
			}},
			{Name: "C"},
		},
	}

	entries := rs.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Direct Route: A (12.3 km, 0 attractions)", entries[0].Summary())
	assert.Equal(t, "Quick Scenic Route: B (20.0 km, 2 attractions)", entries[1].Summary())
	assert.Equal(t, route.KindExplorer, entries[2].Kind)
	assert.Equal(t, "Explorer Route", entries[2].Kind.Label())
}
