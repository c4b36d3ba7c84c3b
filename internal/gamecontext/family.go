package gamecontext

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Caps bound the free text embedded in every dependent entity's generation
// request. Values count runes, not bytes.
const (
	ReceptionCap     = 500
	OriginsCap       = 400
	RulesOverviewCap = 800
	SetupOverviewCap = 600
	maxListItems     = 12

	// Ellipsis marks a truncated field.
	Ellipsis = "..."
)

// BaseEntity is the data a family context is projected from.
type BaseEntity struct {
	Name           string
	Mechanics      []string
	PrimaryTheme   string
	RulesOverview  string
	SetupOverview  string
	ComponentTypes []string
	Designers      []string
	Publishers     []string
	Awards         []Award
	Reception      string
	Origins        string
}

// FamilyContext is the snapshot of a base entity shared with its dependents.
// It is embedded by value into generation requests.
type FamilyContext struct {
	BaseName       string   `json:"baseName"`
	CoreMechanics  []string `json:"coreMechanics,omitempty"`
	PrimaryTheme   string   `json:"primaryTheme,omitempty"`
	RulesOverview  string   `json:"rulesOverview,omitempty"`
	SetupOverview  string   `json:"setupOverview,omitempty"`
	ComponentTypes []string `json:"componentTypes,omitempty"`
	Designers      []string `json:"designers,omitempty"`
	Publishers     []string `json:"publishers,omitempty"`
	Awards         []string `json:"awards,omitempty"`
	Reception      string   `json:"reception,omitempty"`
	Origins        string   `json:"origins,omitempty"`
}

// BuildFamilyContext projects the base entity's current fields into a
// FamilyContext, truncating free text to the package caps.
func BuildFamilyContext(base BaseEntity) FamilyContext {
	awards := make([]string, 0, len(base.Awards))
	for _, a := range base.Awards {
		if line := a.String(); line != "" {
			awards = append(awards, line)
		}
	}
	return FamilyContext{
		BaseName:       strings.TrimSpace(base.Name),
		CoreMechanics:  cleanList(base.Mechanics),
		PrimaryTheme:   strings.TrimSpace(base.PrimaryTheme),
		RulesOverview:  Truncate(base.RulesOverview, RulesOverviewCap),
		SetupOverview:  Truncate(base.SetupOverview, SetupOverviewCap),
		ComponentTypes: cleanList(base.ComponentTypes),
		Designers:      cleanList(base.Designers),
		Publishers:     cleanList(base.Publishers),
		Awards:         limit(awards),
		Reception:      Truncate(base.Reception, ReceptionCap),
		Origins:        Truncate(base.Origins, OriginsCap),
	}
}

// Truncate trims value to at most limit runes, appending Ellipsis when text
// was cut. The result never exceeds limit plus the length of Ellipsis.
func Truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	cut := strings.TrimRight(string(runes[:limit]), " \t\r\n")
	return cut + Ellipsis
}

// Summary condenses the context into the short description dependent
// entities use to refer to their base game.
func (c FamilyContext) Summary() string {
	if c.BaseName == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("Base game: ")
	b.WriteString(c.BaseName)
	if c.PrimaryTheme != "" {
		b.WriteString("\nTheme: ")
		b.WriteString(c.PrimaryTheme)
	}
	if len(c.CoreMechanics) > 0 {
		b.WriteString("\nCore mechanics: ")
		b.WriteString(strings.Join(c.CoreMechanics, ", "))
	}
	if len(c.ComponentTypes) > 0 {
		b.WriteString("\nComponents: ")
		b.WriteString(strings.Join(c.ComponentTypes, ", "))
	}
	if c.RulesOverview != "" {
		b.WriteString("\nRules overview: ")
		b.WriteString(c.RulesOverview)
	}
	if c.SetupOverview != "" {
		b.WriteString("\nSetup overview: ")
		b.WriteString(c.SetupOverview)
	}
	return b.String()
}

// IsZero reports whether the context carries no base entity.
func (c FamilyContext) IsZero() bool {
	return c.BaseName == ""
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := fold.String(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return limit(out)
}

func limit(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	if len(values) > maxListItems {
		return values[:maxListItems]
	}
	return values
}
