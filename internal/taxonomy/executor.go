package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/pipeline"
	"vecna/internal/services"
	"vecna/internal/stageexec"
)

const (
	stageName = "taxonomy"

	// DefaultConfidenceThreshold is the auto-accept floor when none is configured.
	DefaultConfidenceThreshold = 0.7
)

// DefaultKinds are the suggestion kinds the executor applies.
var DefaultKinds = []catalog.SuggestionKind{
	catalog.KindTheme,
	catalog.KindMechanic,
	catalog.KindPlayerExperience,
}

// Policy controls which suggestions are auto-accepted.
type Policy struct {
	Threshold float64
	Kinds     []catalog.SuggestionKind
}

// Summary counts what one run did.
type Summary struct {
	Considered int
	Inserted   int
	Duplicates int
	Skipped    int
}

// Executor applies high-confidence taxonomy suggestions. It is additive and
// idempotent: accepted values are never inserted twice, and it always ends in
// taxonomy_assigned even when nothing qualifies.
type Executor struct {
	store  *catalog.Store
	logger *slog.Logger
	policy Policy
}

// NewExecutor constructs a taxonomy executor. A zero threshold or empty kind
// list falls back to the defaults.
func NewExecutor(store *catalog.Store, logger *slog.Logger, policy Policy) *Executor {
	if policy.Threshold <= 0 {
		policy.Threshold = DefaultConfidenceThreshold
	}
	if len(policy.Kinds) == 0 {
		policy.Kinds = append([]catalog.SuggestionKind(nil), DefaultKinds...)
	}
	return &Executor{
		store:  store,
		logger: logging.NewComponentLogger(logger, stageName),
		policy: policy,
	}
}

// Policy returns the active acceptance policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Run applies pending suggestions to entity, which must be parsed or
// already taxonomy_assigned.
func (e *Executor) Run(ctx context.Context, entity *catalog.Entity) (stageexec.Result, error) {
	from := pipeline.StateParsed
	if entity != nil && entity.State == pipeline.StateTaxonomyAssigned {
		from = pipeline.StateTaxonomyAssigned
	}
	return stageexec.Run(ctx, stageexec.Options{
		Logger:    e.logger,
		Store:     e.store,
		Handler:   e,
		StageName: stageName,
		Entity:    entity,
		From:      from,
		Done:      pipeline.StateTaxonomyAssigned,
	})
}

// Precondition accepts every entity the state check let through.
func (e *Executor) Precondition(context.Context, *catalog.Entity) error {
	return nil
}

// Execute applies the suggestions and reports whether the entity now has any
// taxonomy association.
func (e *Executor) Execute(ctx context.Context, entity *catalog.Entity) (stageexec.Completion, error) {
	summary, err := e.Apply(ctx, entity.ID)
	if err != nil {
		return stageexec.Completion{}, err
	}
	associations, err := e.store.Associations(ctx, entity.ID)
	if err != nil {
		return stageexec.Completion{}, err
	}
	return stageexec.Completion{
		Taxonomy: len(associations) > 0,
		Attrs: []logging.Attr{
			logging.Float64("confidence_threshold", e.policy.Threshold),
			logging.Int("suggestions_considered", summary.Considered),
			logging.Int("associations_inserted", summary.Inserted),
			logging.Int("duplicates_accepted", summary.Duplicates),
			logging.Int("suggestions_skipped", summary.Skipped),
		},
	}, nil
}

// Apply accepts the entity's qualifying pending suggestions kind by kind.
// Existing associations are read first so duplicates are marked accepted
// without a second insert. A suggestion whose taxonomy value no longer
// exists is logged and left pending; the rest of the run continues.
func (e *Executor) Apply(ctx context.Context, entityID int64) (Summary, error) {
	var summary Summary
	suggestions, err := e.store.PendingSuggestions(ctx, entityID, e.policy.Kinds, e.policy.Threshold)
	if err != nil {
		return summary, fmt.Errorf("load pending suggestions: %w", err)
	}
	summary.Considered = len(suggestions)

	byKind := make(map[catalog.SuggestionKind][]catalog.Suggestion, len(e.policy.Kinds))
	for _, sg := range suggestions {
		byKind[sg.Kind] = append(byKind[sg.Kind], sg)
	}

	logger := logging.WithContext(services.WithEntityID(ctx, entityID), e.logger)
	for _, kind := range e.policy.Kinds {
		pending := byKind[kind]
		if len(pending) == 0 {
			continue
		}
		existing, err := e.store.AcceptedValueIDs(ctx, entityID, kind)
		if err != nil {
			return summary, err
		}

		accepted := make([]int64, 0, len(pending))
		for _, sg := range pending {
			if _, dup := existing[sg.ValueID]; dup {
				summary.Duplicates++
				accepted = append(accepted, sg.ID)
				continue
			}
			value, err := e.store.GetTaxonomyValue(ctx, sg.ValueID)
			if err != nil {
				return summary, err
			}
			if value == nil || value.Kind != kind {
				summary.Skipped++
				logging.WarnWithContext(logger, "suggestion references a missing taxonomy value", "suggestion_skipped",
					logging.Int64("suggestion_id", sg.ID),
					logging.Int64("value_id", sg.ValueID),
					logging.String("kind", string(kind)),
					logging.String(logging.FieldErrorHint, "recreate the taxonomy value or reject the suggestion"),
				)
				continue
			}
			inserted, err := e.store.InsertAssociation(ctx, catalog.Association{
				EntityID:  entityID,
				Kind:      kind,
				ValueID:   sg.ValueID,
				IsPrimary: sg.IsPrimary,
			})
			if err != nil {
				return summary, err
			}
			if inserted {
				summary.Inserted++
			} else {
				summary.Duplicates++
			}
			existing[sg.ValueID] = struct{}{}
			accepted = append(accepted, sg.ID)
		}
		if _, err := e.store.MarkSuggestions(ctx, accepted, catalog.SuggestionAccepted); err != nil {
			return summary, err
		}
	}
	return summary, nil
}
