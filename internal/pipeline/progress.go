package pipeline

import "math"

// stateWeights expresses how much completed value each state represents. The
// values increase with chain order and span (0, 1].
var stateWeights = map[State]float64{
	StateImported:         0.05,
	StateEnriched:         0.10,
	StateRulebookMissing:  0.15,
	StateRulebookReady:    0.20,
	StateParsing:          0.30,
	StateParsed:           0.40,
	StateTaxonomyAssigned: 0.50,
	StateGenerating:       0.60,
	StateGenerated:        0.75,
	StateReviewPending:    0.90,
	StatePublished:        1.00,
}

// Weight returns the completion weight of s; unknown states weigh zero.
func Weight(s State) float64 {
	return stateWeights[s]
}

// EntityStatus is the slice of an entity that progress aggregation reads.
type EntityStatus struct {
	ID          int64
	Name        string
	State       State
	HasRulebook bool
	LastError   string
}

// Blocker names an entity that holds a family back.
type Blocker struct {
	ID     int64
	Name   string
	State  State
	Reason string
}

// Progress is a recomputed-on-read aggregate over a family.
type Progress struct {
	Total int
	// Counts holds an entry for every state, including zero counts.
	Counts map[State]int
	// Percent is the mean state weight scaled to 0-100.
	Percent float64
	// CurrentStage is the least advanced state present; empty when Total is zero.
	CurrentStage    State
	MissingRulebook []Blocker
	Errored         []Blocker
}

// CalculateProgress aggregates the pipeline position of a family.
func CalculateProgress(entities []EntityStatus) Progress {
	progress := Progress{
		Total:           len(entities),
		Counts:          make(map[State]int, len(allStates)),
		MissingRulebook: []Blocker{},
		Errored:         []Blocker{},
	}
	for _, s := range allStates {
		progress.Counts[s] = 0
	}
	if len(entities) == 0 {
		return progress
	}

	var sum float64
	lowest := -1
	for _, e := range entities {
		progress.Counts[e.State]++
		sum += Weight(e.State)
		if rank := e.State.Rank(); rank >= 0 && (lowest < 0 || rank < lowest) {
			lowest = rank
		}
		if !e.HasRulebook && e.State != StatePublished {
			progress.MissingRulebook = append(progress.MissingRulebook, Blocker{
				ID: e.ID, Name: e.Name, State: e.State, Reason: "rulebook missing",
			})
		}
		if e.LastError != "" {
			progress.Errored = append(progress.Errored, Blocker{
				ID: e.ID, Name: e.Name, State: e.State, Reason: e.LastError,
			})
		}
	}
	progress.Percent = math.Round(sum/float64(len(entities))*10000) / 100
	if lowest >= 0 {
		progress.CurrentStage = allStates[lowest]
	}
	return progress
}
