package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenify/scenify/internal/api"
	"github.com/scenify/scenify/internal/planner"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	p, err := planner.New(planner.Config{Logger: zerolog.Nop()})
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{Logger: zerolog.Nop(), Planner: p}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_SelectAndExport(t *testing.T) {
	srv := newServer(t)
	out := filepath.Join(t.TempDir(), "route.geojson")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--api-url", srv.URL + "/api",
		"--from", "Oradea",
		"--to", "Vienna",
		"--select", planner.BalancedRouteName,
		"--out", out,
		"--retries", "0",
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	listing := stdout.String()
	assert.Contains(t, listing, "  Direct Route: Direct Route (452.8 km, 0 attractions)")
	assert.Contains(t, listing, "* Quick Scenic Route: Balanced Scenic Route (")
	assert.Contains(t, listing, "Explorer Route: Most Scenic Route (")
	assert.Contains(t, listing, "landmark Buda Castle")
	assert.Contains(t, stderr.String(), "Final route distance:")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.NotEmpty(t, fc.Features)
}

func TestRun_ValidationErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--from", "", "--to", "Vi"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "startLocation:")
	assert.Contains(t, stderr.String(), "endLocation:")
	assert.Empty(t, stdout.String())
}

func TestRun_InvalidCategory(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--from", "Oradea", "--to", "Vienna", "--categories", "castle"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), `invalid category "castle"`)
}

func TestRun_GeocodeFailure(t *testing.T) {
	srv := newServer(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--api-url", srv.URL + "/api",
		"--from", "Atlantis",
		"--to", "Vienna",
	}, &stdout, &stderr)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), `Unable to find "Atlantis". Please verify the spelling or try a nearby city.`)
}

func TestRun_UnknownSelection(t *testing.T) {
	srv := newServer(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--api-url", srv.URL + "/api",
		"--from", "Graz",
		"--to", "Zagreb",
		"--select", "Nowhere Route",
	}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), `cannot select "Nowhere Route"`)
}

func TestRun_NoRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"fastest_route":null,"scenic_routes":[]}`)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--api-url", srv.URL,
		"--from", "Oradea",
		"--to", "Vienna",
	}, &stdout, &stderr)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "No routes found.")
	assert.Empty(t, stdout.String())
}
