package progress

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/scenify/scenify/internal/route"
)

// ContentTypeNDJSON is the media type of the framed protocol.
const ContentTypeNDJSON = "application/x-ndjson"

// FrameType identifies a framed message.
type FrameType string

// Frame types.
const (
	FrameProgress FrameType = "progress"
	FrameResult   FrameType = "result"
	FrameError    FrameType = "error"
)

// Frame is one decoded line of the framed protocol.
type Frame struct {
	Type FrameType
	// Message is set on progress frames.
	Message string
	// Error is set on error frames.
	Error string
	// Raw is the full line; result frames carry the result body here.
	Raw json.RawMessage
}

type wireFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Decoder reads frames from a newline-delimited JSON stream. Lines that are
// not valid frames are skipped and counted.
type Decoder struct {
	r       *bufio.Reader
	skipped int
	done    bool
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next valid frame, or io.EOF once the stream is exhausted.
// A final line without a trailing newline is decoded when the stream ends.
func (d *Decoder) Next() (Frame, error) {
	for !d.done {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Frame{}, err
			}
			d.done = true
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if f, ok := parseFrame(line); ok {
			return f, nil
		}
		d.skipped++
	}
	return Frame{}, io.EOF
}

// Skipped returns how many malformed lines have been discarded.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func parseFrame(line []byte) (Frame, bool) {
	var w wireFrame
	if err := json.Unmarshal(line, &w); err != nil {
		return Frame{}, false
	}
	f := Frame{Type: w.Type, Message: w.Message, Error: w.Error, Raw: append(json.RawMessage(nil), line...)}
	switch w.Type {
	case FrameProgress:
		return f, w.Message != ""
	case FrameError:
		return f, w.Error != ""
	case FrameResult:
		return f, true
	default:
		return Frame{}, false
	}
}

// Encoder writes frames, one JSON object per line.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Progress writes a progress frame.
func (e *Encoder) Progress(msg string) error {
	return e.enc.Encode(wireFrame{Type: FrameProgress, Message: msg})
}

// Error writes an error frame.
func (e *Encoder) Error(msg string) error {
	return e.enc.Encode(wireFrame{Type: FrameError, Error: msg})
}

// Result writes the terminal result frame.
func (e *Encoder) Result(rs route.WireResultSet) error {
	return e.enc.Encode(struct {
		Type FrameType `json:"type"`
		route.WireResultSet
	}{Type: FrameResult, WireResultSet: rs})
}
