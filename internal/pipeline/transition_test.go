package pipeline

import "testing"

func TestNextState(t *testing.T) {
	cases := []struct {
		name    string
		current State
		flags   Flags
		want    State
		wantOK  bool
	}{
		{"imported without enrichment", StateImported, Flags{}, "", false},
		{"imported with enrichment", StateImported, Flags{HasEnrichmentSummary: true}, StateEnriched, true},
		{"enriched without rulebook", StateEnriched, Flags{HasEnrichmentSummary: true}, StateRulebookMissing, true},
		{"enriched with rulebook", StateEnriched, Flags{HasRulebook: true}, StateRulebookReady, true},
		{"rulebook missing still missing", StateRulebookMissing, Flags{}, "", false},
		{"rulebook appeared", StateRulebookMissing, Flags{HasRulebook: true}, StateRulebookReady, true},
		{"rulebook ready", StateRulebookReady, Flags{}, StateParsing, true},
		{"parsing", StateParsing, Flags{HasRulebook: true, HasParsedText: true}, "", false},
		{"parsed", StateParsed, Flags{}, StateTaxonomyAssigned, true},
		{"taxonomy assigned", StateTaxonomyAssigned, Flags{}, StateGenerating, true},
		{"generating", StateGenerating, Flags{HasGeneratedContent: true}, "", false},
		{"generated", StateGenerated, Flags{}, StateReviewPending, true},
		{"review pending", StateReviewPending, Flags{HasGeneratedContent: true}, "", false},
		{"published", StatePublished, Flags{}, "", false},
	}
	for _, tc := range cases {
		got, ok := NextState(tc.current, tc.flags)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("%s: NextState = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestNextStateIsPure(t *testing.T) {
	flags := Flags{HasRulebook: false, HasEnrichmentSummary: true}
	before := flags
	for _, s := range AllStates() {
		a, okA := NextState(s, flags)
		b, okB := NextState(s, flags)
		if a != b || okA != okB {
			t.Fatalf("%s: NextState not deterministic", s)
		}
	}
	if flags != before {
		t.Fatal("NextState mutated its flags")
	}
}

func TestNextStateNeverLeavesProcessingOrBlockingWithoutData(t *testing.T) {
	for _, s := range AllStates() {
		if !s.IsProcessing() {
			continue
		}
		all := Flags{HasRulebook: true, HasEnrichmentSummary: true, HasParsedText: true, HasTaxonomy: true, HasGeneratedContent: true}
		if _, ok := NextState(s, all); ok {
			t.Fatalf("processing state %s advanced automatically", s)
		}
	}
	if _, ok := NextState(StateReviewPending, Flags{HasGeneratedContent: true}); ok {
		t.Fatal("review_pending advanced automatically")
	}
}

func TestEnrichedEntityWithoutRulebookScenario(t *testing.T) {
	flags := Flags{HasRulebook: false, HasEnrichmentSummary: true}
	next, ok := NextState(StateImported, flags)
	if !ok || next != StateEnriched {
		t.Fatalf("imported -> %q, %v", next, ok)
	}
	next, ok = NextState(next, flags)
	if !ok || next != StateRulebookMissing {
		t.Fatalf("enriched -> %q, %v", next, ok)
	}
}

func TestRollbackState(t *testing.T) {
	if s, ok := RollbackState(StateParsing); !ok || s != StateRulebookReady {
		t.Fatalf("parsing rollback = %q, %v", s, ok)
	}
	if s, ok := RollbackState(StateGenerating); !ok || s != StateTaxonomyAssigned {
		t.Fatalf("generating rollback = %q, %v", s, ok)
	}
	if _, ok := RollbackState(StateParsed); ok {
		t.Fatal("non-processing state must not have a rollback")
	}
}
