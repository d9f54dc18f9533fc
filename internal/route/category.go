package route

import "strings"

// Category is the closed taxonomy of points of interest.
type Category string

// Known categories.
const (
	CategoryUnknown            Category = "unknown"
	CategoryUNESCOSite         Category = "unesco_site"
	CategoryMuseum             Category = "museum"
	CategoryGallery            Category = "gallery"
	CategoryViewpoint          Category = "viewpoint"
	CategoryCastle             Category = "castle"
	CategoryPalace             Category = "palace"
	CategoryMonastery          Category = "monastery"
	CategoryCathedral          Category = "cathedral"
	CategoryChurch             Category = "church"
	CategoryMonument           Category = "monument"
	CategoryMemorial           Category = "memorial"
	CategoryRuins              Category = "ruins"
	CategoryArchaeologicalSite Category = "archaeological_site"
	CategoryPeak               Category = "peak"
	CategoryVolcano            Category = "volcano"
	CategoryWaterfall          Category = "waterfall"
	CategoryBeach              Category = "beach"
	CategoryBay                Category = "bay"
	CategoryPark               Category = "park"
	CategoryGarden             Category = "garden"
)

// Icon is a renderer-neutral marker glyph token.
type Icon string

// Icon tokens.
const (
	IconLocation Icon = "location"
	IconLandmark Icon = "landmark"
	IconCastle   Icon = "castle"
	IconChurch   Icon = "church"
	IconRuins    Icon = "ruins"
	IconMountain Icon = "mountain"
	IconWater    Icon = "water"
	IconBeach    Icon = "beach"
	IconPark     Icon = "park"
	IconMuseum   Icon = "museum"
	IconCamera   Icon = "camera"
)

type typeSubtype struct {
	typ, subtype string
}

// Parks and gardens only count as such under the leisure type.
var byTypeSubtype = map[typeSubtype]Category{
	{"leisure", "park"}:   CategoryPark,
	{"leisure", "garden"}: CategoryGarden,
}

var bySubtype = map[string]Category{
	"unesco site":         CategoryUNESCOSite,
	"museum":              CategoryMuseum,
	"gallery":             CategoryGallery,
	"viewpoint":           CategoryViewpoint,
	"castle":              CategoryCastle,
	"palace":              CategoryPalace,
	"monastery":           CategoryMonastery,
	"cathedral":           CategoryCathedral,
	"church":              CategoryChurch,
	"monument":            CategoryMonument,
	"memorial":            CategoryMemorial,
	"ruins":               CategoryRuins,
	"archaeological site": CategoryArchaeologicalSite,
	"peak":                CategoryPeak,
	"volcano":             CategoryVolcano,
	"waterfall":           CategoryWaterfall,
	"beach":               CategoryBeach,
	"bay":                 CategoryBay,
}

var icons = map[Category]Icon{
	CategoryUNESCOSite:         IconLandmark,
	CategoryMonument:           IconLandmark,
	CategoryMemorial:           IconLandmark,
	CategoryCastle:             IconCastle,
	CategoryPalace:             IconCastle,
	CategoryCathedral:          IconChurch,
	CategoryMonastery:          IconChurch,
	CategoryChurch:             IconChurch,
	CategoryRuins:              IconRuins,
	CategoryArchaeologicalSite: IconRuins,
	CategoryPeak:               IconMountain,
	CategoryVolcano:            IconMountain,
	CategoryWaterfall:          IconWater,
	CategoryBeach:              IconBeach,
	CategoryBay:                IconBeach,
	CategoryPark:               IconPark,
	CategoryGarden:             IconPark,
	CategoryMuseum:             IconMuseum,
	CategoryGallery:            IconMuseum,
	CategoryViewpoint:          IconCamera,
}

// CategoryOf classifies a (type, subtype) pair. Matching ignores case and
// surrounding whitespace.
func CategoryOf(typ, subtype string) Category {
	t := normalize(typ)
	s := normalize(subtype)
	if c, ok := byTypeSubtype[typeSubtype{t, s}]; ok {
		return c
	}
	if c, ok := bySubtype[s]; ok {
		return c
	}
	return CategoryUnknown
}

// Icon returns the glyph for the category, IconLocation when there is none.
func (c Category) Icon() Icon {
	if icon, ok := icons[c]; ok {
		return icon
	}
	return IconLocation
}

// Filter is a requested (type, subtype) category pair.
type Filter struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// Matches reports whether the point falls under this filter.
func (f Filter) Matches(p Point) bool {
	return normalize(f.Type) == normalize(p.Type) && normalize(f.Subtype) == normalize(p.Subtype)
}

// String renders the filter as type/subtype.
func (f Filter) String() string {
	return f.Type + "/" + f.Subtype
}

// ParseFilter parses a type/subtype pair.
func ParseFilter(s string) (Filter, bool) {
	typ, subtype, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || typ == "" || subtype == "" {
		return Filter{}, false
	}
	return Filter{Type: normalize(typ), Subtype: normalize(subtype)}, true
}

// DefaultFilters returns every user-selectable category.
func DefaultFilters() []Filter {
	return []Filter{
		{Type: "tourism", Subtype: "museum"},
		{Type: "tourism", Subtype: "gallery"},
		{Type: "historic", Subtype: "castle"},
		{Type: "historic", Subtype: "palace"},
		{Type: "historic", Subtype: "monastery"},
		{Type: "historic", Subtype: "cathedral"},
		{Type: "historic", Subtype: "church"},
		{Type: "natural", Subtype: "peak"},
		{Type: "natural", Subtype: "volcano"},
		{Type: "waterway", Subtype: "waterfall"},
		{Type: "natural", Subtype: "beach"},
		{Type: "natural", Subtype: "bay"},
		{Type: "leisure", Subtype: "park"},
		{Type: "leisure", Subtype: "garden"},
		{Type: "tourism", Subtype: "viewpoint"},
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
