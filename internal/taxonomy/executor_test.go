package taxonomy_test

import (
	"context"
	"testing"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/pipeline"
	"vecna/internal/stageexec"
	"vecna/internal/taxonomy"
	"vecna/internal/testsupport"
)

func parsedEntity(t *testing.T, store *catalog.Store) *catalog.Entity {
	t.Helper()
	return testsupport.NewEntityInState(t, store, catalog.NewEntity{Name: "Everdell"}, pipeline.StateParsed)
}

func TestTaxonomyAcceptsAboveThreshold(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entity := parsedEntity(t, store)

	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Animals", 0.92, true)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindMechanic, "Worker Placement", 0.7, false)
	low := testsupport.AddSuggestion(t, store, entity.ID, catalog.KindPlayerExperience, "Cozy", 0.4, false)

	exec := taxonomy.NewExecutor(store, logging.NewNop(), taxonomy.Policy{})
	result, err := exec.Run(ctx, entity)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != stageexec.Succeeded || result.Entity.State != pipeline.StateTaxonomyAssigned {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Entity.HasTaxonomy {
		t.Fatal("expected HasTaxonomy after inserting associations")
	}

	associations, err := store.Associations(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Associations: %v", err)
	}
	if len(associations) != 2 {
		t.Fatalf("expected 2 associations, got %+v", associations)
	}

	pending, err := store.LowConfidenceSuggestions(ctx, entity.ID, 0.7)
	if err != nil {
		t.Fatalf("LowConfidenceSuggestions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != low.ID {
		t.Fatalf("expected the low-confidence suggestion to stay pending, got %+v", pending)
	}
}

func TestTaxonomyIsIdempotent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entity := parsedEntity(t, store)

	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Animals", 0.9, true)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindMechanic, "Tableau Building", 0.8, false)

	exec := taxonomy.NewExecutor(store, logging.NewNop(), taxonomy.Policy{})
	first, err := exec.Run(ctx, entity)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	once, err := store.Associations(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Associations: %v", err)
	}

	// The parser re-emits the same suggestions on a re-run.
	dupTheme := testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Animals", 0.9, true)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindMechanic, "Tableau Building", 0.8, false)

	second, err := exec.Run(ctx, first.Entity)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Outcome != stageexec.Succeeded || second.Entity.State != pipeline.StateTaxonomyAssigned {
		t.Fatalf("unexpected second result %+v", second)
	}
	twice, err := store.Associations(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Associations: %v", err)
	}
	if len(twice) != len(once) {
		t.Fatalf("expected %d associations after re-run, got %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("association %d changed: %+v -> %+v", i, once[i], twice[i])
		}
	}

	remaining, err := store.PendingSuggestions(ctx, entity.ID, taxonomy.DefaultKinds, 0)
	if err != nil {
		t.Fatalf("PendingSuggestions: %v", err)
	}
	for _, sg := range remaining {
		if sg.ID == dupTheme.ID {
			t.Fatal("duplicate suggestion should be marked accepted")
		}
	}
}

func TestTaxonomySkipsMissingValuesAndContinues(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entity := parsedEntity(t, store)

	orphan := testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Retired Theme", 0.95, false)
	if err := store.DeleteTaxonomyValue(ctx, orphan.ValueID); err != nil {
		t.Fatalf("DeleteTaxonomyValue: %v", err)
	}
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Forest", 0.85, false)

	exec := taxonomy.NewExecutor(store, logging.NewNop(), taxonomy.Policy{})
	summary, err := exec.Apply(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if summary.Skipped != 1 || summary.Inserted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	pending, err := store.PendingSuggestions(ctx, entity.ID, taxonomy.DefaultKinds, 0)
	if err != nil {
		t.Fatalf("PendingSuggestions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != orphan.ID {
		t.Fatalf("expected orphaned suggestion left pending, got %+v", pending)
	}
}

func TestTaxonomyAdvancesWithNoQualifyingSuggestions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entity := parsedEntity(t, store)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Animals", 0.5, false)

	exec := taxonomy.NewExecutor(store, logging.NewNop(), taxonomy.Policy{})
	result, err := exec.Run(context.Background(), entity)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != stageexec.Succeeded || result.Entity.State != pipeline.StateTaxonomyAssigned {
		t.Fatalf("expected advance to taxonomy_assigned, got %+v", result)
	}
	if result.Entity.HasTaxonomy {
		t.Fatal("HasTaxonomy should stay false without associations")
	}
}

func TestTaxonomyThresholdIsInjected(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entity := parsedEntity(t, store)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Animals", 0.5, false)

	exec := taxonomy.NewExecutor(store, logging.NewNop(), taxonomy.Policy{Threshold: 0.4, Kinds: []catalog.SuggestionKind{catalog.KindTheme}})
	summary, err := exec.Apply(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("expected the 0.5 suggestion accepted under a 0.4 threshold, got %+v", summary)
	}
}

func TestTaxonomyKeepsSinglePrimaryPerKind(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entity := parsedEntity(t, store)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Animals", 0.95, true)
	testsupport.AddSuggestion(t, store, entity.ID, catalog.KindTheme, "Forest", 0.9, true)

	exec := taxonomy.NewExecutor(store, logging.NewNop(), taxonomy.Policy{})
	if _, err := exec.Apply(ctx, entity.ID); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	associations, err := store.Associations(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Associations: %v", err)
	}
	primaries := 0
	for _, a := range associations {
		if a.IsPrimary {
			primaries++
			if a.ValueName != "Animals" {
				t.Fatalf("expected the stronger suggestion to be primary, got %q", a.ValueName)
			}
		}
	}
	if primaries != 1 {
		t.Fatalf("expected exactly one primary theme, got %d", primaries)
	}
}
