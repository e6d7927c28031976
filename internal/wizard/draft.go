package wizard

import "sort"

// Evidence is one attached file, owned by the draft until submission.
type Evidence struct {
	Name     string
	MimeType string
	Data     []byte
}

// Draft accumulates an issue report across wizard steps. It is exclusively
// owned by one wizard instance and discarded on cancel.
type Draft struct {
	Category    string
	Subcategory string
	Urgency     int

	Title       string
	Description string

	Address   string
	Latitude  *float64
	Longitude *float64

	Anonymous        bool
	FollowUp         bool
	PreferredContact string
	ContactPhone     string
	ContactEmail     string

	Photos    []Evidence
	Documents []Evidence
	VoiceNote *AudioClip
}

// Category describes one reportable issue category and its default urgency
// suggestion. The default seeds the draft on selection and is overridable in
// the details step.
type Category struct {
	Name           string
	Label          string
	Subcategories  []string
	DefaultUrgency int
}

var categories = map[string]Category{
	"construction": {
		Name:           "construction",
		Label:          "Illegal construction",
		Subcategories:  []string{"unapproved building", "encroachment", "unsafe structure", "zoning violation"},
		DefaultUrgency: 4,
	},
	"sewage": {
		Name:           "sewage",
		Label:          "Sewage & drainage",
		Subcategories:  []string{"blocked drain", "overflow", "broken manhole", "flooding"},
		DefaultUrgency: 4,
	},
	"water": {
		Name:           "water",
		Label:          "Water supply",
		Subcategories:  []string{"burst pipe", "no supply", "contamination", "illegal connection"},
		DefaultUrgency: 3,
	},
	"roads": {
		Name:           "roads",
		Label:          "Roads & transport",
		Subcategories:  []string{"pothole", "broken streetlight", "missing signage", "damaged pavement"},
		DefaultUrgency: 3,
	},
	"waste": {
		Name:           "waste",
		Label:          "Waste management",
		Subcategories:  []string{"uncollected garbage", "illegal dumping", "overflowing bin"},
		DefaultUrgency: 2,
	},
	"noise": {
		Name:           "noise",
		Label:          "Noise pollution",
		Subcategories:  []string{"construction noise", "loud venue", "traffic noise"},
		DefaultUrgency: 2,
	},
	"other": {
		Name:           "other",
		Label:          "Something else",
		Subcategories:  nil,
		DefaultUrgency: 2,
	},
}

// CategoryByName looks up a reportable category.
func CategoryByName(name string) (Category, bool) {
	c, ok := categories[name]
	return c, ok
}

// CategoryNames returns the selectable category names in stable order.
func CategoryNames() []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
