package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scenify/scenify/internal/api/middleware"
	"github.com/scenify/scenify/internal/api/response"
	"github.com/scenify/scenify/internal/planner"
	"github.com/scenify/scenify/internal/progress"
	"github.com/scenify/scenify/internal/route"
)

// Progress protocols.
const (
	ProtocolNDJSON = "ndjson"
	ProtocolLegacy = "legacy"
)

// GenericErrorMessage is returned when planning fails for a reason the user
// cannot act on.
const GenericErrorMessage = "Unable to generate routes at the moment. Please try again later."

// maxBodyBytes bounds the request body.
const maxBodyBytes = 1 << 20

// Planner computes route result sets.
type Planner interface {
	Plan(ctx context.Context, req planner.Request, emit planner.EmitFunc) (*route.ResultSet, error)
}

// RoutesConfig configures the routes handler.
type RoutesConfig struct {
	Planner Planner

	// Protocol is used when the client accepts both progress shapes:
	// ProtocolNDJSON (default) or ProtocolLegacy.
	Protocol string

	// Marker wraps progress messages in the legacy protocol
	// (default: progress.DefaultMarker).
	Marker *progress.Marker

	Logger zerolog.Logger
}

// RoutesHandler handles route computation.
type RoutesHandler struct {
	planner  Planner
	protocol string
	marker   progress.Marker
	logger   zerolog.Logger
}

// NewRoutesHandler creates a new RoutesHandler.
func NewRoutesHandler(cfg RoutesConfig) *RoutesHandler {
	protocol := cfg.Protocol
	if protocol == "" {
		protocol = ProtocolNDJSON
	}
	marker := progress.DefaultMarker
	if cfg.Marker != nil {
		marker = *cfg.Marker
	}
	return &RoutesHandler{
		planner:  cfg.Planner,
		protocol: protocol,
		marker:   marker,
		logger:   cfg.Logger,
	}
}

// routesRequest is the body of POST /api/routes.
type routesRequest struct {
	StartLocation string         `json:"startLocation"`
	EndLocation   string         `json:"endLocation"`
	POICount      int            `json:"poiCount"`
	Categories    []route.Filter `json:"categories"`
}

// ComputeRoutes handles POST /api/routes. Progress is streamed before the
// result, as NDJSON frames or as legacy fragments followed by the JSON
// document. Errors found before the first progress message get a 400.
func (h *RoutesHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input routesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "Invalid JSON body")
		return
	}

	logger := h.logger.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()
	s := newStream(w, h.framed(r.Header.Get("Accept")), h.marker)

	rs, err := h.planner.Plan(r.Context(), planner.Request{
		Start:      input.StartLocation,
		End:        input.EndLocation,
		POICount:   input.POICount,
		Categories: input.Categories,
	}, s.progress)

	if err != nil {
		var planErr *planner.Error
		msg := GenericErrorMessage
		if errors.As(err, &planErr) {
			msg = planErr.Message
		}
		logger.Warn().Err(err).Bool("streaming", s.started).Msg("route planning failed")

		if !s.started {
			status := http.StatusInternalServerError
			if planErr != nil {
				status = http.StatusBadRequest
			}
			response.Error(w, r, status, msg)
			return
		}
		s.fail(msg)
		return
	}

	s.result(route.ToWire(rs))
	if s.err != nil {
		logger.Debug().Err(s.err).Msg("client went away while streaming")
	}
}

// framed reports whether the response uses NDJSON frames.
func (h *RoutesHandler) framed(accept string) bool {
	if !accepts(accept, progress.ContentTypeNDJSON) {
		return false
	}
	return h.protocol != ProtocolLegacy || !accepts(accept, "application/json")
}

func accepts(accept, mediaType string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == mediaType {
			return true
		}
	}
	return false
}

// stream writes progress and the final document, starting the 200 response
// lazily on the first write.
type stream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	framed  bool
	enc     *progress.Encoder
	marker  progress.Marker
	started bool
	err     error
}

func newStream(w http.ResponseWriter, framed bool, marker progress.Marker) *stream {
	return &stream{
		w:      w,
		rc:     http.NewResponseController(w),
		framed: framed,
		enc:    progress.NewEncoder(w),
		marker: marker,
	}
}

func (s *stream) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	if s.framed {
		h.Set("Content-Type", progress.ContentTypeNDJSON)
	} else {
		h.Set("Content-Type", "text/plain; charset=utf-8")
	}
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

func (s *stream) progress(msg string) {
	if s.err != nil {
		return
	}
	s.start()
	if s.framed {
		s.err = s.enc.Progress(msg)
	} else {
		_, s.err = io.WriteString(s.w, s.marker.Fragment(msg))
	}
	s.flush()
}

func (s *stream) result(rs route.WireResultSet) {
	if s.err != nil {
		return
	}
	s.start()
	if s.framed {
		s.err = s.enc.Result(rs)
	} else {
		s.err = json.NewEncoder(s.w).Encode(rs)
	}
	s.flush()
}

func (s *stream) fail(msg string) {
	if s.err != nil {
		return
	}
	s.start()
	if s.framed {
		s.err = s.enc.Error(msg)
	} else {
		s.err = json.NewEncoder(s.w).Encode(response.ErrorBody{Error: msg})
	}
	s.flush()
}

func (s *stream) flush() {
	if s.err != nil {
		return
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.err = err
	}
}
