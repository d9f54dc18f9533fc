package route

import "fmt"

// Kind describes where a route sits in the result set.
type Kind int

// Route kinds in display order.
const (
	KindFastest Kind = iota
	KindQuickScenic
	KindExplorer
)

// Label returns the display label for the kind.
func (k Kind) Label() string {
	switch k {
	case KindFastest:
		return "Direct Route"
	case KindQuickScenic:
		return "Quick Scenic Route"
	default:
		return "Explorer Route"
	}
}

// Entry is one line of the route list.
type Entry struct {
	Kind  Kind
	Route *Route
}

// Summary renders the entry as "<label>: <name> (<km>, N attractions)".
func (e Entry) Summary() string {
	return fmt.Sprintf("%s: %s (%s, %d attractions)",
		e.Kind.Label(), e.Route.Name, FormatKm(e.Route.Distance), e.Route.Attractions())
}

// Entries lists the result set with the kind of each route.
func (s *ResultSet) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.Scenic)+1)
	if s.Fastest != nil {
		out = append(out, Entry{Kind: KindFastest, Route: s.Fastest})
	}
	for i := range s.Scenic {
		kind := KindExplorer
		if i == 0 {
			kind = KindQuickScenic
		}
		out = append(out, Entry{Kind: kind, Route: &s.Scenic[i]})
	}
	return out
}

// FormatKm renders meters as kilometers with one decimal.
func FormatKm(meters float64) string {
	return fmt.Sprintf("%.1f km", meters/1000)
}
