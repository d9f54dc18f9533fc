package routeclient

import (
	"strings"
	"unicode/utf8"

	"github.com/scenify/scenify/internal/route"
)

// MinLocationLength is the shortest accepted location, after trimming.
const MinLocationLength = 3

// DefaultPOICount is the number of points of interest requested by default.
const DefaultPOICount = 15

// Request is the route form as submitted by the user.
type Request struct {
	StartLocation string         `json:"startLocation"`
	EndLocation   string         `json:"endLocation"`
	POICount      int            `json:"poiCount"`
	Categories    []route.Filter `json:"categories"`
}

// Normalized returns a copy with trimmed locations and a non-nil category set.
func (r Request) Normalized() Request {
	r.StartLocation = strings.TrimSpace(r.StartLocation)
	r.EndLocation = strings.TrimSpace(r.EndLocation)
	if r.Categories == nil {
		r.Categories = []route.Filter{}
	}
	return r
}

// Validate checks the request before anything is sent.
func (r Request) Validate() error {
	var errs []FieldError
	errs = append(errs, validateLocation("startLocation", "start", r.StartLocation)...)
	errs = append(errs, validateLocation("endLocation", "end", r.EndLocation)...)
	if r.POICount <= 0 {
		errs = append(errs, FieldError{Field: "poiCount", Message: "Number of points of interest must be positive"})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateLocation(field, kind, value string) []FieldError {
	v := strings.TrimSpace(value)
	if v == "" {
		return []FieldError{{Field: field, Message: "Please enter a " + kind + " location"}}
	}
	if utf8.RuneCountInString(v) < MinLocationLength {
		return []FieldError{{Field: field, Message: "Location must be at least 3 characters long"}}
	}
	return nil
}
