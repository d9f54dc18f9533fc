package routeclient

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors classifying a failed request.
var (
	// ErrValidation indicates the request was rejected locally.
	ErrValidation = errors.New("invalid route request")
	// ErrGeocode indicates the server could not resolve a location.
	ErrGeocode = errors.New("location could not be geocoded")
	// ErrServerCompute indicates the server reported a computation failure.
	ErrServerCompute = errors.New("route computation failed")
	// ErrTransport indicates the response could not be obtained or understood.
	ErrTransport = errors.New("route request failed")
)

// GenericMessage is shown for every transport failure.
const GenericMessage = "Unable to generate routes at the moment. Please try again later."

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "Please fix the errors above to continue (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Message returns the error for field, if any.
func (e *ValidationError) Message(field string) (string, bool) {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// Error is a failed route request. Kind is one of ErrGeocode,
// ErrServerCompute or ErrTransport; Message is safe to show to the user.
type Error struct {
	Kind    error
	Message string
	// Location is the unresolved place for geocode failures.
	Location string
	// Status is the HTTP status when a response was received.
	Status int
	// Cause is the underlying failure, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// UserMessage extracts the message to show for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "Please fix the errors above to continue"
	}
	return GenericMessage
}

var geocodePattern = regexp.MustCompile(`Could not geocode .* location: '(.*)'`)

// serverError classifies an error string returned by the server.
func serverError(msg string, status int) *Error {
	if m := geocodePattern.FindStringSubmatch(msg); m != nil {
		return &Error{
			Kind:     ErrGeocode,
			Message:  `Unable to find "` + m[1] + `". Please verify the spelling or try a nearby city.`,
			Location: m[1],
			Status:   status,
		}
	}
	return &Error{Kind: ErrServerCompute, Message: msg, Status: status}
}

func transportError(status int, cause error) *Error {
	return &Error{Kind: ErrTransport, Message: GenericMessage, Status: status, Cause: cause}
}
