package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// InternalErrorMessage is returned when a handler panics.
const InternalErrorMessage = "an unexpected error occurred"

// Recovery recovers from handler panics. It answers 500 unless the handler
// already started the response, in which case the stream is cut short.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrapWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error().
					Str("request_id", GetRequestID(r.Context())).
					Interface("panic", rec).
					Bool("response_started", sw.wroteHeader).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				if !sw.wroteHeader {
					writeError(sw, http.StatusInternalServerError, InternalErrorMessage)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
