package quality

import (
	"math"
	"reflect"
	"strings"
)

// Importance ranks how much a missing field matters.
type Importance string

const (
	Critical    Importance = "critical"
	Important   Importance = "important"
	Recommended Importance = "recommended"
	Optional    Importance = "optional"
)

// Weight is the share a field of this importance carries in the percentage.
func (i Importance) Weight() float64 {
	switch i {
	case Critical:
		return 4
	case Important:
		return 3
	case Recommended:
		return 2
	case Optional:
		return 1
	}
	return 0
}

// Status is the roll-up verdict used to gate publication.
type Status string

const (
	StatusComplete       Status = "complete"
	StatusNeedsAttention Status = "needs_attention"
	StatusIncomplete     Status = "incomplete"
)

// Field is one expected field of a category.
type Field struct {
	Name       string
	Importance Importance
}

// Category groups the fields expected in one content type.
type Category struct {
	// Name matches the content type the fields are read from.
	Name   string
	Fields []Field
}

// DefaultCategories is the field hierarchy checked before publication.
var DefaultCategories = []Category{
	{
		Name: "rules",
		Fields: []Field{
			{Name: "overview", Importance: Critical},
			{Name: "turn_structure", Importance: Critical},
			{Name: "win_conditions", Importance: Critical},
			{Name: "actions", Importance: Important},
			{Name: "end_game", Importance: Important},
			{Name: "variants", Importance: Optional},
		},
	},
	{
		Name: "setup",
		Fields: []Field{
			{Name: "components_checklist", Importance: Critical},
			{Name: "steps", Importance: Critical},
			{Name: "player_count_changes", Importance: Recommended},
			{Name: "first_player", Importance: Recommended},
		},
	},
	{
		Name: "reference",
		Fields: []Field{
			{Name: "turn_summary", Importance: Important},
			{Name: "iconography", Importance: Recommended},
			{Name: "faq", Importance: Optional},
		},
	},
}

// DefaultCompleteThreshold is the percentage at which content counts as complete.
const DefaultCompleteThreshold = 85.0

// MissingField names an expected field that is absent or empty.
type MissingField struct {
	Category   string
	Field      string
	Importance Importance
}

// CategoryReport is the completeness of one category.
type CategoryReport struct {
	Name     string
	Present  int
	Expected int
	Percent  float64
	Missing  []MissingField
}

// Report is the result of evaluating an entity's generated content.
type Report struct {
	Percent    float64
	Status     Status
	Categories []CategoryReport
	Missing    []MissingField
}

// MissingCritical returns the missing critical fields.
func (r Report) MissingCritical() []MissingField {
	var out []MissingField
	for _, m := range r.Missing {
		if m.Importance == Critical {
			out = append(out, m)
		}
	}
	return out
}

// AllowsPublish reports whether content may leave review for publication.
// force lets a reviewer publish content that only needs attention; missing
// critical fields always block.
func (r Report) AllowsPublish(force bool) bool {
	switch r.Status {
	case StatusComplete:
		return true
	case StatusNeedsAttention:
		return force
	}
	return false
}

// Gate evaluates generated content against a category hierarchy.
type Gate struct {
	categories []Category
	threshold  float64
}

// NewGate constructs a gate. A non-positive threshold uses
// DefaultCompleteThreshold; no categories uses DefaultCategories.
func NewGate(threshold float64, categories ...Category) *Gate {
	if threshold <= 0 {
		threshold = DefaultCompleteThreshold
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return &Gate{categories: categories, threshold: threshold}
}

// Evaluate checks content, keyed by content type then field name.
//
// The percentage weights each field by importance. Any missing critical field
// forces StatusIncomplete regardless of the percentage. Otherwise content is
// complete when the percentage reaches the threshold and no important field
// is missing.
func (g *Gate) Evaluate(content map[string]map[string]any) Report {
	report := Report{Categories: make([]CategoryReport, 0, len(g.categories))}
	var presentWeight, totalWeight float64
	missingCritical, missingImportant := false, false

	for _, category := range g.categories {
		fields := content[category.Name]
		cr := CategoryReport{Name: category.Name, Expected: len(category.Fields)}
		var catPresent, catTotal float64
		for _, field := range category.Fields {
			weight := field.Importance.Weight()
			catTotal += weight
			if Present(fields[field.Name]) {
				cr.Present++
				catPresent += weight
				continue
			}
			missing := MissingField{Category: category.Name, Field: field.Name, Importance: field.Importance}
			cr.Missing = append(cr.Missing, missing)
			report.Missing = append(report.Missing, missing)
			switch field.Importance {
			case Critical:
				missingCritical = true
			case Important:
				missingImportant = true
			}
		}
		cr.Percent = percent(catPresent, catTotal)
		presentWeight += catPresent
		totalWeight += catTotal
		report.Categories = append(report.Categories, cr)
	}

	report.Percent = percent(presentWeight, totalWeight)
	switch {
	case missingCritical:
		report.Status = StatusIncomplete
	case report.Percent >= g.threshold && !missingImportant:
		report.Status = StatusComplete
	default:
		report.Status = StatusNeedsAttention
	}
	return report
}

// Present reports whether a generated value carries content. Nil, blank
// strings, and empty collections count as missing.
func Present(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(part/total*10000) / 100
}
