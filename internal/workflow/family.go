package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"vecna/internal/catalog"
	"vecna/internal/gamecontext"
	"vecna/internal/logging"
	"vecna/internal/pipeline"
	"vecna/internal/services"
)

// familySignals holds one completion signal per family whose base entity is
// being advanced. Dependents wait on it before generating.
type familySignals struct {
	mu      sync.Mutex
	pending map[int64]chan struct{}
}

func newFamilySignals() *familySignals {
	return &familySignals{pending: make(map[int64]chan struct{})}
}

// begin opens a signal for familyID and returns the func that releases it.
// Release is idempotent.
func (s *familySignals) begin(familyID int64) func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.pending[familyID] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.pending[familyID] == ch {
				delete(s.pending, familyID)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// wait blocks until no base run is pending for familyID.
func (s *familySignals) wait(ctx context.Context, familyID int64) error {
	if familyID == 0 {
		return nil
	}
	s.mu.Lock()
	ch, ok := s.pending[familyID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FamilyRun is the result of advancing a family.
type FamilyRun struct {
	FamilyID int64
	// Order is the processing order: base first, then by publication year.
	Order    []int64
	Steps    map[int64][]Step
	Progress pipeline.Progress
}

// AdvanceFamily drives every entity of a family. The base entity runs first;
// dependents run concurrently, bounded by workflow.max_parallel, and hold
// their generate step until the base run has finished and the family
// context has been rebuilt.
func (m *Manager) AdvanceFamily(ctx context.Context, familyID int64) (FamilyRun, error) {
	family, err := m.store.GetFamily(ctx, familyID)
	if err != nil {
		return FamilyRun{}, err
	}
	if family == nil {
		return FamilyRun{}, services.Wrap(services.ErrNotFound, "workflow", "advance family", fmt.Sprintf("family %d", familyID), nil)
	}
	entities, err := m.store.ListFamilyEntities(ctx, familyID)
	if err != nil {
		return FamilyRun{}, err
	}

	sortable := make([]pipeline.Sortable, 0, len(entities))
	hasBase := false
	for _, e := range entities {
		sortable = append(sortable, pipeline.Sortable{ID: e.ID, PublicationYear: e.PublicationYear})
		if e.ID == family.BaseEntityID {
			hasBase = true
		}
	}
	run := FamilyRun{
		FamilyID: familyID,
		Order:    pipeline.SortForProcessing(sortable, family.BaseEntityID),
		Steps:    make(map[int64][]Step, len(entities)),
	}

	if hasBase {
		if _, err := m.ensureFamilyContext(ctx, family); err != nil {
			logging.WarnWithContext(logging.WithContext(services.WithFamilyID(ctx, familyID), m.logger),
				"family context refresh failed", "family_context_rebuild_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run vecna rebuild-context once the cause is fixed"),
			)
		}
	}

	release := func() {}
	if hasBase {
		release = m.signals.begin(familyID)
	}
	defer release()

	familyCtx := services.WithFamilyID(ctx, familyID)
	logger := logging.WithContext(familyCtx, m.logger)
	logger.Info("family run started",
		logging.String(logging.FieldEventType, "family_start"),
		logging.Int("entities", len(run.Order)),
		logging.Int64("base_entity_id", family.BaseEntityID),
	)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(familyCtx)
	if limit := m.cfg.Workflow.MaxParallel; limit > 0 {
		group.SetLimit(limit)
	}
	for _, id := range run.Order {
		isBase := id == family.BaseEntityID
		group.Go(func() error {
			if isBase {
				defer release()
			}
			steps, err := m.Drive(groupCtx, id)
			mu.Lock()
			run.Steps[id] = steps
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("entity %d: %w", id, err)
			}
			return nil
		})
	}
	runErr := group.Wait()

	progress, err := m.Progress(ctx, familyID)
	if err != nil && runErr == nil {
		runErr = err
	}
	run.Progress = progress
	logger.Info("family run finished",
		logging.String(logging.FieldEventType, "family_complete"),
		logging.Float64("progress_percent", progress.Percent),
		logging.String("current_stage", string(progress.CurrentStage)),
	)
	return run, runErr
}

// Progress aggregates the current pipeline position of a family.
func (m *Manager) Progress(ctx context.Context, familyID int64) (pipeline.Progress, error) {
	entities, err := m.store.ListFamilyEntities(ctx, familyID)
	if err != nil {
		return pipeline.Progress{}, err
	}
	statuses := make([]pipeline.EntityStatus, 0, len(entities))
	for _, e := range entities {
		statuses = append(statuses, e.Status())
	}
	return pipeline.CalculateProgress(statuses), nil
}

// RebuildFamily rebuilds the context of familyID from its base entity
// regardless of the cache age.
func (m *Manager) RebuildFamily(ctx context.Context, familyID int64) (*gamecontext.FamilyContext, error) {
	family, err := m.store.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "rebuild context", fmt.Sprintf("family %d", familyID), nil)
	}
	if family.BaseEntityID == 0 {
		return nil, services.Wrap(services.ErrPrecondition, "workflow", "rebuild context",
			fmt.Sprintf("family %d has no base entity", familyID), nil)
	}
	return m.RebuildFamilyContext(ctx, family.ID, family.BaseEntityID)
}

// ensureFamilyContext rebuilds the cached context when the base entity has
// finished generating but the cache is missing or older than its content.
// This recovers families whose rebuild hook failed or never ran.
func (m *Manager) ensureFamilyContext(ctx context.Context, family *catalog.Family) (bool, error) {
	if family == nil || family.BaseEntityID == 0 {
		return false, nil
	}
	base, err := m.store.GetEntity(ctx, family.BaseEntityID)
	if err != nil || base == nil {
		return false, err
	}
	if !contextStale(family, base) {
		return false, nil
	}
	fc, err := m.RebuildFamilyContext(ctx, family.ID, base.ID)
	if err != nil {
		return false, err
	}
	return fc != nil, nil
}

func contextStale(family *catalog.Family, base *catalog.Entity) bool {
	if !base.HasGeneratedContent {
		return false
	}
	if base.State != pipeline.StateReviewPending && base.State != pipeline.StatePublished {
		return false
	}
	if family.Context == nil || family.Context.IsZero() || family.ContextBuiltAt == nil {
		return true
	}
	return base.ContentGeneratedAt != nil && family.ContextBuiltAt.Before(*base.ContentGeneratedAt)
}

// RebuildFamilyContext recomputes and overwrites the cached context of a
// family from its base entity. It returns nil and leaves the cache untouched
// when the base entity has neither enrichment nor generated content yet.
// Concurrent rebuilds of the same family share one computation.
func (m *Manager) RebuildFamilyContext(ctx context.Context, familyID, baseEntityID int64) (*gamecontext.FamilyContext, error) {
	v, err, _ := m.rebuilds.Do(fmt.Sprintf("%d:%d", familyID, baseEntityID), func() (any, error) {
		return m.rebuildFamilyContext(ctx, familyID, baseEntityID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*gamecontext.FamilyContext), nil
}

func (m *Manager) rebuildFamilyContext(ctx context.Context, familyID, baseEntityID int64) (*gamecontext.FamilyContext, error) {
	base, err := m.store.RequireEntity(ctx, baseEntityID)
	if err != nil {
		return nil, err
	}
	if !base.HasEnrichmentSummary && !base.HasGeneratedContent {
		return nil, nil
	}
	projection, err := m.loadBaseEntity(ctx, base)
	if err != nil {
		return nil, err
	}
	fc := gamecontext.BuildFamilyContext(projection)
	if err := m.store.SaveFamilyContext(ctx, familyID, fc); err != nil {
		return nil, err
	}
	logging.WithContext(services.WithFamilyID(ctx, familyID), m.logger).Info("family context rebuilt",
		logging.String(logging.FieldEventType, "family_context_rebuilt"),
		logging.Int64("base_entity_id", baseEntityID),
		logging.String("primary_theme", fc.PrimaryTheme),
	)
	return &fc, nil
}

// loadBaseEntity gathers the secondary lookups a family context needs:
// enrichment, accepted taxonomy, and generated content.
func (m *Manager) loadBaseEntity(ctx context.Context, base *catalog.Entity) (gamecontext.BaseEntity, error) {
	enrichment, err := m.store.GetEnrichment(ctx, base.ID)
	if err != nil {
		return gamecontext.BaseEntity{}, err
	}
	associations, err := m.store.Associations(ctx, base.ID)
	if err != nil {
		return gamecontext.BaseEntity{}, err
	}
	content, err := m.store.GetContent(ctx, base.ID)
	if err != nil {
		return gamecontext.BaseEntity{}, err
	}

	projection := gamecontext.BaseEntity{
		Name:           base.Name,
		Mechanics:      append([]string(nil), base.Mechanics...),
		ComponentTypes: base.Components,
		Designers:      base.Designers,
		Publishers:     base.Publishers,
		RulesOverview:  contentText(content["rules"], "overview"),
		SetupOverview:  contentText(content["setup"], "steps"),
	}
	if enrichment != nil {
		projection.Awards = enrichment.Awards
		projection.Reception = enrichment.Reception
		projection.Origins = enrichment.Origins
	}
	for _, a := range associations {
		switch a.Kind {
		case catalog.KindMechanic:
			projection.Mechanics = append(projection.Mechanics, a.ValueName)
		case catalog.KindTheme:
			// Associations list the primary value first within a kind.
			if projection.PrimaryTheme == "" {
				projection.PrimaryTheme = a.ValueName
			}
		}
	}
	return projection, nil
}

func contentText(content *catalog.Content, field string) string {
	if content == nil {
		return ""
	}
	switch v := content.Fields[field].(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
