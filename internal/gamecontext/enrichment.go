package gamecontext

import (
	"fmt"
	"strings"
)

// MetadataField is one structured enrichment attribute (e.g. "Players": "2-4").
type MetadataField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Award is one entry in an entity's award history.
type Award struct {
	Name     string `json:"name"`
	Year     int    `json:"year,omitempty"`
	Category string `json:"category,omitempty"`
	Result   string `json:"result,omitempty"`
}

// String renders an award as a single line.
func (a Award) String() string {
	var b strings.Builder
	if a.Year > 0 {
		fmt.Fprintf(&b, "%d ", a.Year)
	}
	b.WriteString(strings.TrimSpace(a.Name))
	if category := strings.TrimSpace(a.Category); category != "" {
		b.WriteString(" - ")
		b.WriteString(category)
	}
	if result := strings.TrimSpace(a.Result); result != "" {
		fmt.Fprintf(&b, " (%s)", result)
	}
	return strings.TrimSpace(b.String())
}

// EnrichmentData is the optional enrichment collected for an entity.
type EnrichmentData struct {
	Summary   string
	Gameplay  string
	Origins   string
	Reception string
	Metadata  []MetadataField
	Awards    []Award
}

type section struct {
	title string
	body  string
}

// BuildContext renders enrichment data as a text bundle with sections in a
// fixed order: summary, gameplay, origins, reception, awards, metadata. Empty
// sections are omitted. ok is false only when every field is empty.
func BuildContext(data EnrichmentData) (string, bool) {
	sections := []section{
		{title: "Summary", body: strings.TrimSpace(data.Summary)},
		{title: "Gameplay", body: strings.TrimSpace(data.Gameplay)},
		{title: "Origins", body: strings.TrimSpace(data.Origins)},
		{title: "Reception", body: strings.TrimSpace(data.Reception)},
		{title: "Awards", body: renderAwards(data.Awards)},
		{title: "Metadata", body: renderMetadata(data.Metadata)},
	}

	var b strings.Builder
	for _, s := range sections {
		if s.body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(s.title)
		b.WriteString("\n")
		b.WriteString(s.body)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func renderAwards(awards []Award) string {
	lines := make([]string, 0, len(awards))
	for _, a := range awards {
		if line := a.String(); line != "" {
			lines = append(lines, "- "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderMetadata(fields []MetadataField) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		key := strings.TrimSpace(f.Key)
		value := strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", key, value))
	}
	return strings.Join(lines, "\n")
}
