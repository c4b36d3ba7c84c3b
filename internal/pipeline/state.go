package pipeline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State is a position in the content pipeline.
type State string

const (
	StateImported         State = "imported"
	StateEnriched         State = "enriched"
	StateRulebookMissing  State = "rulebook_missing"
	StateRulebookReady    State = "rulebook_ready"
	StateParsing          State = "parsing"
	StateParsed           State = "parsed"
	StateTaxonomyAssigned State = "taxonomy_assigned"
	StateGenerating       State = "generating"
	StateGenerated        State = "generated"
	StateReviewPending    State = "review_pending"
	StatePublished        State = "published"
)

// allStates lists every state in chain order. The order backs Rank.
var allStates = []State{
	StateImported,
	StateEnriched,
	StateRulebookMissing,
	StateRulebookReady,
	StateParsing,
	StateParsed,
	StateTaxonomyAssigned,
	StateGenerating,
	StateGenerated,
	StateReviewPending,
	StatePublished,
}

var stateRank = func() map[State]int {
	ranks := make(map[State]int, len(allStates))
	for i, s := range allStates {
		ranks[s] = i
	}
	return ranks
}()

// Class partitions states by what is allowed to move an entity out of them.
type Class string

const (
	ClassAuto       Class = "auto"
	ClassBlocking   Class = "blocking"
	ClassProcessing Class = "processing"
)

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := stateRank[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// Valid reports whether s is part of the enumeration.
func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Rank is the zero-based chain position of s, or -1 for unknown values.
func (s State) Rank() int {
	if r, ok := stateRank[s]; ok {
		return r
	}
	return -1
}

// Classify reports whether s advances automatically, waits on a human, or
// represents in-flight external work. Unknown values return an empty Class.
//
// The switch intentionally has no default branch so exhaustiveness linters
// flag any state added to the enumeration without a classification.
func Classify(s State) Class {
	switch s {
	case StateRulebookMissing, StateReviewPending:
		return ClassBlocking
	case StateParsing, StateGenerating:
		return ClassProcessing
	case StateImported,
		StateEnriched,
		StateRulebookReady,
		StateParsed,
		StateTaxonomyAssigned,
		StateGenerated,
		StatePublished:
		return ClassAuto
	}
	return ""
}

// IsBlocking reports whether only a human action can move an entity out of s.
func (s State) IsBlocking() bool { return Classify(s) == ClassBlocking }

// IsProcessing reports whether s marks in-flight external work.
func (s State) IsProcessing() bool { return Classify(s) == ClassProcessing }

// IsAuto reports whether s flows forward given sufficient data.
func (s State) IsAuto() bool { return Classify(s) == ClassAuto }

// Metadata is the human-readable description of a state.
type Metadata struct {
	State       State
	Label       string
	Description string
	Class       Class
	// Needs names the human action that unblocks a blocking state.
	Needs string
}

var stateDescriptions = map[State]string{
	StateImported:         "Record imported, awaiting enrichment data",
	StateEnriched:         "Enrichment data attached",
	StateRulebookMissing:  "No rulebook available for parsing",
	StateRulebookReady:    "Rulebook available, queued for parsing",
	StateParsing:          "Rulebook extraction in progress",
	StateParsed:           "Rulebook text extracted",
	StateTaxonomyAssigned: "Taxonomy suggestions applied",
	StateGenerating:       "Content generation in progress",
	StateGenerated:        "Content generated",
	StateReviewPending:    "Generated content awaiting review",
	StatePublished:        "Content published",
}

var stateNeeds = map[State]string{
	StateRulebookMissing: "attach a rulebook URL",
	StateReviewPending:   "approve the generated content",
}

// Describe returns the metadata for s.
func Describe(s State) Metadata {
	return Metadata{
		State:       s,
		Label:       Label(s),
		Description: stateDescriptions[s],
		Class:       Classify(s),
		Needs:       stateNeeds[s],
	}
}

// Label renders s for display ("taxonomy_assigned" -> "Taxonomy Assigned").
func Label(s State) string {
	if s == "" {
		return ""
	}
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}
