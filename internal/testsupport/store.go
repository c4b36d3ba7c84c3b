package testsupport

import (
	"context"
	"testing"

	"vecna/internal/catalog"
	"vecna/internal/config"
	"vecna/internal/gamecontext"
	"vecna/internal/pipeline"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewFamily creates a family for tests.
func NewFamily(t testing.TB, store *catalog.Store, name string) *catalog.Family {
	t.Helper()

	family, err := store.CreateFamily(context.Background(), name)
	if err != nil {
		t.Fatalf("store.CreateFamily: %v", err)
	}
	return family
}

// NewEntity inserts an entity for tests.
func NewEntity(t testing.TB, store *catalog.Store, in catalog.NewEntity) *catalog.Entity {
	t.Helper()

	entity, err := store.CreateEntity(context.Background(), in)
	if err != nil {
		t.Fatalf("store.CreateEntity: %v", err)
	}
	return entity
}

// NewEntityInState inserts an entity and moves it straight to state.
func NewEntityInState(t testing.TB, store *catalog.Store, in catalog.NewEntity, state pipeline.State) *catalog.Entity {
	t.Helper()

	entity := NewEntity(t, store, in)
	if state == entity.State {
		return entity
	}
	return SetState(t, store, entity.ID, state)
}

// SetState overwrites an entity's state regardless of the chain.
func SetState(t testing.TB, store *catalog.Store, id int64, state pipeline.State) *catalog.Entity {
	t.Helper()

	ctx := context.Background()
	current, err := store.RequireEntity(ctx, id)
	if err != nil {
		t.Fatalf("store.RequireEntity: %v", err)
	}
	updated, err := store.Transition(ctx, id, catalog.StateChange{From: current.State, To: state})
	if err != nil {
		t.Fatalf("store.Transition %s -> %s: %v", current.State, state, err)
	}
	return updated
}

// SeedFamily creates a family with a base entity and the given dependents,
// all in state. The base is linked as the family base.
func SeedFamily(t testing.TB, store *catalog.Store, name string, state pipeline.State, dependents ...string) (*catalog.Family, *catalog.Entity, []*catalog.Entity) {
	t.Helper()

	ctx := context.Background()
	family := NewFamily(t, store, name)
	base := NewEntityInState(t, store, catalog.NewEntity{
		Name:            name,
		FamilyID:        family.ID,
		PublicationYear: 2000,
		RulebookURL:     "https://rules.example/" + name + ".pdf",
	}, state)
	if err := store.SetFamily(ctx, base.ID, family.ID, base.ID, catalog.RelationNone); err != nil {
		t.Fatalf("store.SetFamily: %v", err)
	}
	if err := store.SetFamilyBase(ctx, family.ID, base.ID); err != nil {
		t.Fatalf("store.SetFamilyBase: %v", err)
	}

	var deps []*catalog.Entity
	for i, depName := range dependents {
		dep := NewEntityInState(t, store, catalog.NewEntity{
			Name:            depName,
			FamilyID:        family.ID,
			BaseEntityID:    base.ID,
			RelationType:    catalog.RelationExpansion,
			PublicationYear: 2001 + i,
			RulebookURL:     "https://rules.example/" + depName + ".pdf",
		}, state)
		deps = append(deps, dep)
	}

	family, err := store.GetFamily(ctx, family.ID)
	if err != nil {
		t.Fatalf("store.GetFamily: %v", err)
	}
	base, err = store.RequireEntity(ctx, base.ID)
	if err != nil {
		t.Fatalf("store.RequireEntity: %v", err)
	}
	return family, base, deps
}

// SaveEnrichment stores enrichment for an entity.
func SaveEnrichment(t testing.TB, store *catalog.Store, entityID int64, data gamecontext.EnrichmentData) {
	t.Helper()

	if err := store.SaveEnrichment(context.Background(), catalog.Enrichment{
		EntityID:  entityID,
		Summary:   data.Summary,
		Gameplay:  data.Gameplay,
		Origins:   data.Origins,
		Reception: data.Reception,
		Metadata:  data.Metadata,
		Awards:    data.Awards,
	}); err != nil {
		t.Fatalf("store.SaveEnrichment: %v", err)
	}
}

// AddSuggestion records a pending suggestion for a freshly created taxonomy value.
func AddSuggestion(t testing.TB, store *catalog.Store, entityID int64, kind catalog.SuggestionKind, value string, confidence float64, primary bool) catalog.Suggestion {
	t.Helper()

	ctx := context.Background()
	tv, err := store.CreateTaxonomyValue(ctx, kind, value)
	if err != nil {
		t.Fatalf("store.CreateTaxonomyValue: %v", err)
	}
	sg, err := store.AddSuggestion(ctx, catalog.Suggestion{
		EntityID:   entityID,
		Kind:       kind,
		ValueID:    tv.ID,
		Confidence: confidence,
		IsPrimary:  primary,
	})
	if err != nil {
		t.Fatalf("store.AddSuggestion: %v", err)
	}
	return *sg
}
