package progress_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenify/scenify/internal/progress"
	"github.com/scenify/scenify/internal/route"
)

func TestScanner_Latest(t *testing.T) {
	s := progress.NewScanner(progress.DefaultMarker)

	tests := []struct {
		name   string
		buf    string
		want   string
		wantOK bool
	}{
		{"empty", "", "", false},
		{"no fragment", `{"fastest_route": null}`, "", false},
		{"single", `print(f"Searching")`, "Searching", true},
		{"last wins", "print(f\"one\")\nprint(f\"two\")\n", "two", true},
		{"unterminated quote", `print(f"one") print(f"tw`, "one", true},
		{"only unterminated", `print(f"tw`, "", false},
		{"missing close marker", `print(f"done"`, "done", true},
		{"empty message", `print(f"")`, "", false},
		{"surrounded by json", "print(f\"a\")\n{\"x\":1}", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Latest([]byte(tt.buf))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanner_Monotonic(t *testing.T) {
	s := progress.NewScanner(progress.DefaultMarker)
	full := "print(f\"Searching for points of interest:\")\nprint(f\"Found a number of 12 POIs\")\nprint(f\"Final route distance (OSRM): 12.3km\")\n{}"

	var seen []string
	for i := 0; i <= len(full); i++ {
		msg, ok := s.Latest([]byte(full[:i]))
		if !ok {
			continue
		}
		if len(seen) == 0 || seen[len(seen)-1] != msg {
			seen = append(seen, msg)
		}
	}

	assert.Equal(t, []string{
		"Searching for points of interest:",
		"Found a number of 12 POIs",
		"Final route distance (OSRM): 12.3km",
	}, seen)
}

func TestScanner_CustomMarker(t *testing.T) {
	s := progress.NewScanner(progress.Marker{Open: "progress:", Close: ";"})

	msg, ok := s.Latest([]byte(`progress:"a"; progress:"b";`))
	require.True(t, ok)
	assert.Equal(t, "b", msg)

	_, ok = s.Latest([]byte(`print(f"a")`))
	assert.False(t, ok)
}

func TestScanner_Payload(t *testing.T) {
	s := progress.NewScanner(progress.DefaultMarker)

	body := "print(f\"a\")\nprint(f\"b\")\n{\"scenic_routes\": []}\n"
	assert.Equal(t, `{"scenic_routes": []}`, string(s.Payload([]byte(body))))

	plain := []byte(`{"error": "boom"}`)
	assert.Equal(t, plain, s.Payload(plain))
}

func TestMarker_Fragment(t *testing.T) {
	frag := progress.DefaultMarker.Fragment(`Found "12" POIs`)
	assert.Equal(t, "print(f\"Found '12' POIs\")\n", frag)

	msg, ok := progress.NewScanner(progress.DefaultMarker).Latest([]byte(frag))
	require.True(t, ok)
	assert.Equal(t, "Found '12' POIs", msg)
}

func TestScanner_Ticks(t *testing.T) {
	s := progress.NewScanner(progress.DefaultMarker)
	body := "print(f\"one\")\nprint(f\"two\")\n{}"

	var ticks []progress.Tick
	for tick, err := range s.Ticks(iotest.OneByteReader(strings.NewReader(body))) {
		require.NoError(t, err)
		ticks = append(ticks, tick)
	}

	require.Len(t, ticks, len(body))
	assert.False(t, ticks[0].HasMessage)
	assert.Equal(t, body, string(ticks[len(ticks)-1].Buffer))
	assert.Equal(t, "two", ticks[len(ticks)-1].Message)

	var last string
	for _, tick := range ticks {
		if tick.HasMessage {
			last = tick.Message
		}
	}
	assert.Equal(t, "two", last)
}

func TestScanner_TicksReadError(t *testing.T) {
	s := progress.NewScanner(progress.DefaultMarker)
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(`print(f"one")`), iotest.ErrReader(boom))

	var gotErr error
	var count int
	for tick, err := range s.Ticks(r) {
		if err != nil {
			gotErr = err
			assert.Equal(t, `print(f"one")`, string(tick.Buffer))
			continue
		}
		count++
	}

	assert.ErrorIs(t, gotErr, boom)
	assert.Equal(t, 1, count)
}

func TestScanner_TicksStopsEarly(t *testing.T) {
	s := progress.NewScanner(progress.DefaultMarker)
	r := iotest.OneByteReader(strings.NewReader("abcdef"))

	n := 0
	for range s.Ticks(r) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "cdef", string(rest))
}

func TestDecoder_Frames(t *testing.T) {
	stream := strings.Join([]string{
		`{"type":"progress","message":"Searching"}`,
		`not json`,
		``,
		`{"type":"unknown"}`,
		`{"type":"progress","message":""}`,
		`{"type":"progress","message":"Found 3 POIs"}`,
		`{"type":"result","fastest_route":null,"scenic_routes":[]}`,
	}, "\n")

	d := progress.NewDecoder(strings.NewReader(stream))

	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, progress.FrameProgress, f.Type)
	assert.Equal(t, "Searching", f.Message)

	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "Found 3 POIs", f.Message)

	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, progress.FrameResult, f.Type)

	rs, err := route.DecodeResultSet(f.Raw)
	require.NoError(t, err)
	assert.True(t, rs.Empty())

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, d.Skipped())
}

func TestEncoder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := progress.NewEncoder(&buf)

	require.NoError(t, enc.Progress("Searching"))
	require.NoError(t, enc.Result(route.ToWire(&route.ResultSet{Fastest: &route.Route{Name: "A"}})))
	require.NoError(t, enc.Error("boom"))

	d := progress.NewDecoder(&buf)

	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, progress.FrameProgress, f.Type)

	f, err = d.Next()
	require.NoError(t, err)
	require.Equal(t, progress.FrameResult, f.Type)
	rs, err := route.DecodeResultSet(f.Raw)
	require.NoError(t, err)
	require.NotNil(t, rs.Fastest)
	assert.Equal(t, "A", rs.Fastest.Name)

	f, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, progress.FrameError, f.Type)
	assert.Equal(t, "boom", f.Error)

	assert.Zero(t, d.Skipped())
}
