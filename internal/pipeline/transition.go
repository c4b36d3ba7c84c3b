package pipeline

// Flags is the snapshot of data an entity already has.
type Flags struct {
	HasRulebook          bool
	HasEnrichmentSummary bool
	HasParsedText        bool
	HasTaxonomy          bool
	HasGeneratedContent  bool
}

// NextState computes the automatic successor of current. ok is false when no
// automatic transition is possible: an external actor or an in-flight
// operation must change the state instead.
//
// Each branch consults only the flags relevant to it. The unconditional
// advances hand the entity to the next executor; they are not data checks.
func NextState(current State, flags Flags) (State, bool) {
	switch current {
	case StateImported:
		if flags.HasEnrichmentSummary {
			return StateEnriched, true
		}
		return "", false
	case StateEnriched:
		if flags.HasRulebook {
			return StateRulebookReady, true
		}
		return StateRulebookMissing, true
	case StateRulebookMissing:
		if flags.HasRulebook {
			return StateRulebookReady, true
		}
		return "", false
	case StateRulebookReady:
		return StateParsing, true
	case StateParsed:
		return StateTaxonomyAssigned, true
	case StateTaxonomyAssigned:
		return StateGenerating, true
	case StateGenerated:
		return StateReviewPending, true
	case StateParsing, StateGenerating:
		return "", false
	case StateReviewPending, StatePublished:
		return "", false
	}
	return "", false
}

// RollbackState is the last stable predecessor a processing state returns to
// when its step fails or its lease expires.
func RollbackState(processing State) (State, bool) {
	switch processing {
	case StateParsing:
		return StateRulebookReady, true
	case StateGenerating:
		return StateTaxonomyAssigned, true
	}
	return "", false
}
