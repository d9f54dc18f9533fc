package selection_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenify/scenify/internal/mapview"
	"github.com/scenify/scenify/internal/route"
	"github.com/scenify/scenify/internal/routeclient"
	"github.com/scenify/scenify/internal/selection"
)

type outcome struct {
	rs  *route.ResultSet
	err error
}

type pendingCall struct {
	req        routeclient.Request
	ctx        context.Context
	onProgress routeclient.ProgressFunc
	reply      chan outcome
}

// blockingFetcher parks every call until the test replies to it.
type blockingFetcher struct {
	calls chan *pendingCall
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{calls: make(chan *pendingCall, 8)}
}

func (f *blockingFetcher) Fetch(ctx context.Context, req routeclient.Request, onProgress routeclient.ProgressFunc) (*route.ResultSet, error) {
	call := &pendingCall{req: req, ctx: ctx, onProgress: onProgress, reply: make(chan outcome, 1)}
	f.calls <- call
	out := <-call.reply
	return out.rs, out.err
}

func (f *blockingFetcher) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not called")
		return nil
	}
}

type recordingRenderer struct {
	mu       sync.Mutex
	rendered []string
}

func (r *recordingRenderer) Render(rt *route.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := "<nil>"
	if rt != nil {
		name = rt.Name
	}
	r.rendered = append(r.rendered, name)
	return nil
}

func (r *recordingRenderer) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rendered...)
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, req routeclient.Request, onProgress routeclient.ProgressFunc) (*route.ResultSet, error)

func (f fetcherFunc) Fetch(ctx context.Context, req routeclient.Request, onProgress routeclient.ProgressFunc) (*route.ResultSet, error) {
	return f(ctx, req, onProgress)
}

func validRequest() routeclient.Request {
	return routeclient.Request{StartLocation: "Oradea", EndLocation: "Vienna", POICount: 15}
}

func resultSet() *route.ResultSet {
	return &route.ResultSet{
		Fastest: &route.Route{
			Name: "A",
			Path: orb.LineString{{21.92, 47.06}, {16.37, 48.21}},
			Points: []route.Point{
				{Name: "Oradea", Lat: 47.06, Lon: 21.92, Role: route.RoleEndpoint},
				{Name: "Vienna", Lat: 48.21, Lon: 16.37, Role: route.RoleEndpoint},
			},
		},
		Scenic: []route.Route{{
			Name: "B",
			Path: orb.LineString{{21.92, 47.06}, {19.04, 47.5}, {16.37, 48.21}},
			Points: []route.Point{
				{Name: "Oradea", Lat: 47.06, Lon: 21.92, Role: route.RoleEndpoint},
				{Name: "Buda Castle", Lat: 47.5, Lon: 19.04, Role: route.RolePOI},
				{Name: "Vienna", Lat: 48.21, Lon: 16.37, Role: route.RoleEndpoint},
			},
		}},
	}
}

func TestController_SubmitSuccessRendersFastest(t *testing.T) {
	fetcher := newBlockingFetcher()
	surface := mapview.NewMemorySurface()
	renderer := mapview.NewRenderer(mapview.Config{
		Factory: func() (mapview.Surface, error) { return surface, nil },
		Logger:  zerolog.Nop(),
	})
	c := selection.New(selection.Config{Fetcher: fetcher, Renderer: renderer, Logger: zerolog.Nop()})
	defer c.Close()

	done, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, selection.StatusLoading, c.Snapshot().Status)

	call := fetcher.next(t)
	call.onProgress("Searching for points of interest:")
	call.onProgress("Found a number of 12 POIs")
	call.reply <- outcome{rs: resultSet()}
	wait(t, done)

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusReady, snap.Status)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "A", snap.Selected.Name)
	assert.Equal(t, []string{"Searching for points of interest:", "Found a number of 12 POIs"}, snap.ProgressLog)
	assert.Equal(t, "Found a number of 12 POIs", snap.LatestProgress())

	overlays := surface.Overlays()
	require.Len(t, overlays, 1)
	features := overlays[0].Features.Features
	require.Len(t, features, 3)
	assert.Equal(t, mapview.KindPath, features[0].Properties["kind"])
	assert.Equal(t, mapview.KindMarker, features[1].Properties["kind"])
	assert.Equal(t, mapview.KindMarker, features[2].Properties["kind"])
}

func TestController_InvalidSubmitLeavesStateUnchanged(t *testing.T) {
	fetcher := newBlockingFetcher()
	c := selection.New(selection.Config{Fetcher: fetcher, Logger: zerolog.Nop()})

	_, err := c.Submit(context.Background(), routeclient.Request{StartLocation: "Or", EndLocation: "Vienna", POICount: 15})
	require.ErrorIs(t, err, routeclient.ErrValidation)

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusIdle, snap.Status)
	assert.Zero(t, snap.Generation)
	assert.Empty(t, fetcher.calls)
}

func TestController_ErrorState(t *testing.T) {
	fetcher := newBlockingFetcher()
	c := selection.New(selection.Config{Fetcher: fetcher, Logger: zerolog.Nop()})
	defer c.Close()

	done, err := c.Submit(context.Background(), routeclient.Request{StartLocation: "Atlantis", EndLocation: "Vienna", POICount: 15})
	require.NoError(t, err)

	fetcher.next(t).reply <- outcome{err: &routeclient.Error{
		Kind:     routeclient.ErrGeocode,
		Message:  `Unable to find "Atlantis". Please verify the spelling or try a nearby city.`,
		Location: "Atlantis",
	}}
	wait(t, done)

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusError, snap.Status)
	assert.Equal(t, `Unable to find "Atlantis". Please verify the spelling or try a nearby city.`, snap.ErrorMessage)
	assert.ErrorIs(t, snap.Err, routeclient.ErrGeocode)
	assert.Nil(t, snap.Results)

	assert.ErrorIs(t, c.Select("A"), selection.ErrNotReady)
}

func TestController_StaleResultIsDiscarded(t *testing.T) {
	fetcher := newBlockingFetcher()
	renderer := &recordingRenderer{}
	c := selection.New(selection.Config{Fetcher: fetcher, Renderer: renderer, Logger: zerolog.Nop()})
	defer c.Close()

	first, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	call1 := fetcher.next(t)

	second, err := c.Submit(context.Background(), routeclient.Request{StartLocation: "Vienna", EndLocation: "Prague", POICount: 15})
	require.NoError(t, err)
	call2 := fetcher.next(t)

	assert.ErrorIs(t, call1.ctx.Err(), context.Canceled, "previous request is abandoned")

	call2.reply <- outcome{rs: &route.ResultSet{Fastest: &route.Route{Name: "Second"}}}
	wait(t, second)

	call1.onProgress("late progress")
	call1.reply <- outcome{rs: resultSet()}
	wait(t, first)

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusReady, snap.Status)
	assert.Equal(t, "Second", snap.Selected.Name)
	assert.Empty(t, snap.ProgressLog)
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, []string{"<nil>", "<nil>", "Second"}, renderer.all())
}

func TestController_StaleErrorIsDiscarded(t *testing.T) {
	fetcher := newBlockingFetcher()
	c := selection.New(selection.Config{Fetcher: fetcher, Logger: zerolog.Nop()})
	defer c.Close()

	first, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	call1 := fetcher.next(t)

	c.Restart()

	call1.reply <- outcome{err: errors.New("connection reset")}
	wait(t, first)

	assert.Equal(t, selection.StatusIdle, c.Snapshot().Status)
}

func TestController_Select(t *testing.T) {
	fetcher := newBlockingFetcher()
	renderer := &recordingRenderer{}
	c := selection.New(selection.Config{Fetcher: fetcher, Renderer: renderer, Logger: zerolog.Nop()})
	defer c.Close()

	done, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	fetcher.next(t).reply <- outcome{rs: resultSet()}
	wait(t, done)

	require.NoError(t, c.Select("B"))
	assert.Equal(t, "B", c.Snapshot().Selected.Name)
	assert.ErrorIs(t, c.Select("Z"), selection.ErrUnknownRoute)
	assert.Equal(t, "B", c.Snapshot().Selected.Name)

	assert.Equal(t, []string{"<nil>", "A", "B"}, renderer.all())
}

func TestController_NoFastestRoute(t *testing.T) {
	fetcher := newBlockingFetcher()
	c := selection.New(selection.Config{Fetcher: fetcher, Logger: zerolog.Nop()})
	defer c.Close()

	done, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	fetcher.next(t).reply <- outcome{rs: &route.ResultSet{Scenic: []route.Route{{Name: "B"}}}}
	wait(t, done)

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusReady, snap.Status)
	assert.Nil(t, snap.Selected)
}

func TestController_RestartClearsEverything(t *testing.T) {
	fetcher := newBlockingFetcher()
	renderer := &recordingRenderer{}
	var changes []selection.Status
	c := selection.New(selection.Config{
		Fetcher:  fetcher,
		Renderer: renderer,
		OnChange: func(s selection.Snapshot) { changes = append(changes, s.Status) },
		Logger:   zerolog.Nop(),
	})
	defer c.Close()

	done, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	fetcher.next(t).reply <- outcome{rs: resultSet()}
	wait(t, done)

	c.Restart()

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusIdle, snap.Status)
	assert.Nil(t, snap.Results)
	assert.Nil(t, snap.Selected)
	assert.Empty(t, snap.ProgressLog)
	assert.Equal(t, "<nil>", renderer.all()[len(renderer.all())-1])
	assert.Equal(t, []selection.Status{selection.StatusLoading, selection.StatusReady, selection.StatusIdle}, changes)
}

func TestController_ResubmitFromError(t *testing.T) {
	fetcher := newBlockingFetcher()
	c := selection.New(selection.Config{Fetcher: fetcher, Logger: zerolog.Nop()})
	defer c.Close()

	done, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	fetcher.next(t).reply <- outcome{err: &routeclient.Error{Kind: routeclient.ErrTransport, Message: routeclient.GenericMessage}}
	wait(t, done)
	require.Equal(t, selection.StatusError, c.Snapshot().Status)

	done, err = c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, selection.StatusLoading, snap.Status)
	assert.Empty(t, snap.ErrorMessage)

	fetcher.next(t).reply <- outcome{rs: resultSet()}
	wait(t, done)
	assert.Equal(t, selection.StatusReady, c.Snapshot().Status)
}

func TestController_CloseDiscardsAbandonedRequest(t *testing.T) {
	started := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, _ routeclient.Request, _ routeclient.ProgressFunc) (*route.ResultSet, error) {
		close(started)
		<-ctx.Done()
		return nil, &routeclient.Error{Kind: routeclient.ErrTransport, Message: routeclient.GenericMessage, Cause: ctx.Err()}
	})

	var changes []selection.Status
	renderer := &recordingRenderer{}
	c := selection.New(selection.Config{
		Fetcher:  fetcher,
		Renderer: renderer,
		OnChange: func(s selection.Snapshot) { changes = append(changes, s.Status) },
		Logger:   zerolog.Nop(),
	})

	done, err := c.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	<-started

	c.Close()
	wait(t, done)

	snap := c.Snapshot()
	assert.Equal(t, selection.StatusLoading, snap.Status)
	assert.Empty(t, snap.ErrorMessage)
	assert.NoError(t, snap.Err)
	assert.Equal(t, []selection.Status{selection.StatusLoading}, changes)
	assert.Equal(t, []string{"<nil>"}, renderer.all())

	_, err = c.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, selection.ErrClosed)
}

func TestController_MockedServerEndToEnd(t *testing.T) {
	const body = `{"fastest_route":{"name":"A","distance":500000,"path":[[21,47],[16,48]],"points":[{"name":"Oradea"},{"name":"Vienna"}]},"scenic_routes":[]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, body)
	}))
	defer server.Close()

	client := routeclient.NewClient(routeclient.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Timeout:    5 * time.Second,
		Logger:     zerolog.Nop(),
	})
	surface := mapview.NewMemorySurface()
	renderer := mapview.NewRenderer(mapview.Config{
		Factory: func() (mapview.Surface, error) { return surface, nil },
		Logger:  zerolog.Nop(),
	})
	c := selection.New(selection.Config{Fetcher: client, Renderer: renderer, Logger: zerolog.Nop()})
	defer c.Close()

	done, err := c.Submit(context.Background(), routeclient.Request{
		StartLocation: "Oradea, Romania",
		EndLocation:   "Vienna, Austria",
		POICount:      15,
		Categories:    []route.Filter{},
	})
	require.NoError(t, err)
	wait(t, done)

	snap := c.Snapshot()
	require.Equal(t, selection.StatusReady, snap.Status, snap.ErrorMessage)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "A", snap.Selected.Name)
	assert.InDelta(t, 500000, snap.Selected.Distance, 0.001)
	assert.Empty(t, snap.Results.Scenic)

	overlays := surface.Overlays()
	require.Len(t, overlays, 1)

	style := mapview.DefaultStyle()
	paths, endpoints := 0, 0
	for _, f := range overlays[0].Features.Features {
		switch f.Properties["kind"] {
		case mapview.KindPath:
			paths++
		case mapview.KindMarker:
			assert.Equal(t, string(route.RoleEndpoint), f.Properties["role"])
			if f.Properties["marker-radius"] == style.Start.Radius {
				endpoints++
			}
		}
	}
	assert.Equal(t, 1, paths)
	assert.Equal(t, 2, endpoints)
	assert.Len(t, overlays[0].Features.Features, 3)
}
