package workflow

import (
	"context"
	"errors"
	"fmt"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/notifications"
	"vecna/internal/pipeline"
	"vecna/internal/services"
	"vecna/internal/stageexec"
)

// Step records one advance of one entity.
type Step struct {
	EntityID int64
	From     pipeline.State
	To       pipeline.State
	Outcome  stageexec.Outcome
	// Err explains a failed or skipped step.
	Err error
}

// Advance performs the next automatic action for entity id: a direct state
// write for auto-advancing states, or the matching step executor. Blocking,
// processing, and terminal states are reported as skipped.
func (m *Manager) Advance(ctx context.Context, id int64) (Step, error) {
	entity, err := m.store.RequireEntity(ctx, id)
	if err != nil {
		return Step{}, err
	}
	ctx = services.WithFamilyID(services.WithEntityID(ctx, entity.ID), entity.FamilyID)

	next, ok := pipeline.NextState(entity.State, entity.Flags())
	if !ok {
		return Step{
			EntityID: entity.ID,
			From:     entity.State,
			To:       entity.State,
			Outcome:  stageexec.Skipped,
			Err:      waitingError(entity.State),
		}, nil
	}

	switch {
	case next == pipeline.StateParsing:
		result, err := m.parse.Run(ctx, entity)
		m.notifyFailure(ctx, entity, "parsing", result)
		return stepFrom(entity, result, err)
	case next == pipeline.StateGenerating:
		if entity.IsDependent() {
			if err := m.signals.wait(ctx, entity.FamilyID); err != nil {
				return Step{}, err
			}
			// The base may have changed the family while we waited.
			if entity, err = m.store.RequireEntity(ctx, id); err != nil {
				return Step{}, err
			}
		}
		result, err := m.generate.Run(ctx, entity)
		m.notifyFailure(ctx, entity, "generation", result)
		return stepFrom(entity, result, err)
	case entity.State == pipeline.StateParsed:
		result, err := m.taxonomy.Run(ctx, entity)
		return stepFrom(entity, result, err)
	}
	return m.advanceDirect(ctx, entity, next)
}

func (m *Manager) advanceDirect(ctx context.Context, entity *catalog.Entity, next pipeline.State) (Step, error) {
	step := Step{EntityID: entity.ID, From: entity.State}
	updated, err := m.store.Transition(ctx, entity.ID, catalog.StateChange{From: entity.State, To: next})
	if errors.Is(err, services.ErrStateConflict) {
		step.To = entity.State
		step.Outcome = stageexec.Skipped
		step.Err = err
		return step, nil
	}
	if err != nil {
		return Step{}, err
	}
	step.To = updated.State
	step.Outcome = stageexec.Succeeded

	logging.WithContext(ctx, m.logger).Info("entity advanced",
		logging.String(logging.FieldEventType, "state_advanced"),
		logging.String("from_state", string(entity.State)),
		logging.String("to_state", string(updated.State)),
	)

	if entity.State == pipeline.StateGenerated && next == pipeline.StateReviewPending {
		m.afterGenerated(ctx, updated)
	}
	switch updated.State {
	case pipeline.StateRulebookMissing:
		m.notify(ctx, notifications.EventRulebookMissing, updated, nil)
	case pipeline.StateReviewPending:
		m.notify(ctx, notifications.EventReviewPending, updated, nil)
	}
	return step, nil
}

// afterGenerated rebuilds the family context once a base entity has
// generated content. A failed rebuild leaves the previous cache in place.
func (m *Manager) afterGenerated(ctx context.Context, entity *catalog.Entity) {
	if entity.FamilyID == 0 || entity.IsDependent() {
		return
	}
	family, err := m.store.GetFamily(ctx, entity.FamilyID)
	if err != nil || family == nil || family.BaseEntityID != entity.ID {
		return
	}
	if _, err := m.RebuildFamilyContext(ctx, family.ID, entity.ID); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "family context rebuild failed", "family_context_rebuild_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "dependents keep using the previous family context"),
		)
	}
}

func (m *Manager) notifyFailure(ctx context.Context, entity *catalog.Entity, stage string, result stageexec.Result) {
	if result.Outcome != stageexec.Failed {
		return
	}
	m.notify(ctx, notifications.EventStageFailed, entity, notifications.Payload{
		"stage": stage,
		"error": services.DiagnosticMessage(result.Err),
	})
}

// notify publishes event for entity. Delivery failures are logged and never
// fail the step.
func (m *Manager) notify(ctx context.Context, event notifications.Event, entity *catalog.Entity, extra notifications.Payload) {
	payload := notifications.Payload{"entityId": entity.ID, "name": entity.Name}
	for k, v := range extra {
		payload[k] = v
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// Drive advances entity id until it blocks, fails, or reaches
// workflow.max_steps.
func (m *Manager) Drive(ctx context.Context, id int64) ([]Step, error) {
	limit := m.cfg.Workflow.MaxSteps
	if limit <= 0 {
		limit = len(pipeline.AllStates())
	}
	var steps []Step
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		step, err := m.Advance(ctx, id)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
		if step.Outcome != stageexec.Succeeded {
			break
		}
	}
	return steps, nil
}

func stepFrom(before *catalog.Entity, result stageexec.Result, err error) (Step, error) {
	if err != nil {
		return Step{}, err
	}
	step := Step{EntityID: before.ID, From: before.State, Outcome: result.Outcome, Err: result.Err}
	if result.Entity != nil {
		step.To = result.Entity.State
	}
	return step, nil
}

func waitingError(state pipeline.State) error {
	meta := pipeline.Describe(state)
	switch meta.Class {
	case pipeline.ClassBlocking:
		return services.Wrap(services.ErrPrecondition, "workflow", "advance",
			fmt.Sprintf("%s: waiting for a human to %s", state, meta.Needs), nil)
	case pipeline.ClassProcessing:
		return services.Wrap(services.ErrStateConflict, "workflow", "advance",
			fmt.Sprintf("%s: step already in flight", state), nil)
	}
	if state == pipeline.StateImported {
		return services.Wrap(services.ErrPrecondition, "workflow", "advance", "imported: no enrichment data yet", nil)
	}
	return services.Wrap(services.ErrPrecondition, "workflow", "advance",
		fmt.Sprintf("%s: no automatic transition", state), nil)
}
