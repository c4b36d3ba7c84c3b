package workflow

import (
	"context"
	"errors"
	"fmt"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/notifications"
	"vecna/internal/pipeline"
	"vecna/internal/quality"
	"vecna/internal/services"
)

// AttachRulebook records a rulebook URL for an entity. An entity parked in
// rulebook_missing is moved to rulebook_ready immediately.
func (m *Manager) AttachRulebook(ctx context.Context, id int64, url string) (*catalog.Entity, error) {
	if err := m.store.AttachRulebook(ctx, id, url); err != nil {
		return nil, err
	}
	entity, err := m.store.RequireEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity.State != pipeline.StateRulebookMissing {
		return entity, nil
	}
	next, ok := pipeline.NextState(entity.State, entity.Flags())
	if !ok {
		return entity, nil
	}
	updated, err := m.store.Transition(ctx, id, catalog.StateChange{From: entity.State, To: next, ClearError: true})
	if errors.Is(err, services.ErrStateConflict) {
		return m.store.RequireEntity(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithEntityID(ctx, id), m.logger).Info("rulebook attached",
		logging.String(logging.FieldEventType, "rulebook_attached"),
		logging.String("to_state", string(updated.State)),
	)
	return updated, nil
}

// Approve publishes an entity awaiting review when its generated content
// passes the completeness gate. force publishes content that only needs
// attention; content missing a critical field is never published.
func (m *Manager) Approve(ctx context.Context, id int64, force bool) (*catalog.Entity, quality.Report, error) {
	entity, err := m.store.RequireEntity(ctx, id)
	if err != nil {
		return nil, quality.Report{}, err
	}
	if entity.State != pipeline.StateReviewPending {
		return entity, quality.Report{}, services.Wrap(services.ErrStateConflict, "workflow", "approve",
			fmt.Sprintf("entity %d is %s, expected %s", id, entity.State, pipeline.StateReviewPending), nil)
	}

	report, err := m.Evaluate(ctx, id)
	if err != nil {
		return entity, report, err
	}
	if !report.AllowsPublish(force) {
		detail := fmt.Sprintf("content is %s (%.1f%%)", report.Status, report.Percent)
		if missing := report.MissingCritical(); len(missing) > 0 {
			detail += fmt.Sprintf("; missing critical %s.%s", missing[0].Category, missing[0].Field)
		}
		return entity, report, services.Wrap(services.ErrPrecondition, "workflow", "approve", detail, nil)
	}

	published, err := m.store.Transition(ctx, id, catalog.StateChange{
		From:       pipeline.StateReviewPending,
		To:         pipeline.StatePublished,
		ClearError: true,
	})
	if err != nil {
		return entity, report, err
	}
	logging.WithContext(services.WithEntityID(ctx, id), m.logger).Info("entity published",
		logging.String(logging.FieldEventType, "entity_published"),
		logging.String("quality_status", string(report.Status)),
		logging.Float64("quality_percent", report.Percent),
		logging.Bool("forced", force && report.Status != quality.StatusComplete),
	)
	m.notify(ctx, notifications.EventPublished, published, nil)
	return published, report, nil
}

// Evaluate runs the completeness gate over an entity's stored content.
func (m *Manager) Evaluate(ctx context.Context, id int64) (quality.Report, error) {
	stored, err := m.store.GetContent(ctx, id)
	if err != nil {
		return quality.Report{}, err
	}
	content := make(map[string]map[string]any, len(stored))
	for contentType, c := range stored {
		content[contentType] = c.Fields
	}
	return m.gate.Evaluate(content), nil
}
