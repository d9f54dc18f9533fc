// Package progress extracts human-readable progress updates from a route
// response while it is still streaming.
//
// Two wire shapes are understood. The legacy shape embeds fragments such as
// print(f"Found 12 POIs") in the response text ahead of the final JSON
// document; Scanner re-scans the cumulative text and reports the newest
// fragment. The framed shape sends one JSON object per line; Decoder reads
// those frames in order.
package progress

import (
	"bytes"
	"io"
	"iter"
	"regexp"
	"strings"
)

// Marker delimits an embedded progress fragment.
type Marker struct {
	Open  string
	Close string
}

// DefaultMarker matches fragments of the form print(f"<message>").
var DefaultMarker = Marker{Open: "print(f", Close: ")"}

// Fragment renders msg as an embedded fragment terminated by a newline.
// Double quotes in msg are replaced since they would end the fragment early.
func (m Marker) Fragment(msg string) string {
	return m.Open + `"` + strings.ReplaceAll(msg, `"`, "'") + `"` + m.Close + "\n"
}

// Scanner finds the latest embedded fragment in a text buffer. It holds no
// state between calls and is safe for concurrent use.
type Scanner struct {
	re *regexp.Regexp
}

// NewScanner builds a scanner for the marker. A marker without an opening
// delimiter falls back to DefaultMarker.
func NewScanner(m Marker) *Scanner {
	if m.Open == "" {
		m = DefaultMarker
	}
	pattern := regexp.QuoteMeta(m.Open) + `"([^"]+)"`
	if m.Close != "" {
		pattern += `(?:` + regexp.QuoteMeta(m.Close) + `)?`
	}
	return &Scanner{re: regexp.MustCompile(pattern)}
}

// Latest returns the message of the last complete fragment in buf. It
// returns false when buf holds no complete fragment, and never fails.
func (s *Scanner) Latest(buf []byte) (msg string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			msg, ok = "", false
		}
	}()

	matches := s.re.FindAllSubmatch(buf, -1)
	if len(matches) == 0 {
		return "", false
	}
	return string(matches[len(matches)-1][1]), true
}

// Payload returns the bytes after the last complete fragment, or buf itself
// when there is none. For a finished legacy stream this is the final JSON
// document.
func (s *Scanner) Payload(buf []byte) []byte {
	locs := s.re.FindAllIndex(buf, -1)
	if len(locs) == 0 {
		return buf
	}
	return bytes.TrimSpace(buf[locs[len(locs)-1][1]:])
}

// Tick is the state of a stream after one read.
type Tick struct {
	// Buffer is everything received so far.
	Buffer []byte
	// Message is the latest fragment in Buffer; valid when HasMessage is set.
	Message    string
	HasMessage bool
}

const readChunk = 32 * 1024

// Ticks reads r to the end, yielding one tick per successful read. A read
// error other than io.EOF is yielded once and ends the sequence. The sequence
// consumes r and cannot be restarted.
func (s *Scanner) Ticks(r io.Reader) iter.Seq2[Tick, error] {
	return func(yield func(Tick, error) bool) {
		var buf []byte
		chunk := make([]byte, readChunk)
		for {
			n, err := r.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
				msg, ok := s.Latest(buf)
				if !yield(Tick{Buffer: buf, Message: msg, HasMessage: ok}, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Tick{Buffer: buf}, err)
				return
			}
		}
	}
}
