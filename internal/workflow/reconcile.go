package workflow

import (
	"context"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/services"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Reclaimed          []catalog.Reclaimed
	ExpiredSuggestions int64
	// RebuiltContexts lists families whose missing or stale context was rebuilt.
	RebuiltContexts []int64
}

// Reconcile demotes entities whose processing lease has expired back to their
// stable predecessor with a timeout error, rebuilds family contexts that
// lag behind their base entity's generated content, and rejects stale
// low-confidence suggestions when taxonomy.suggestion_expiry_days is set.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	now := m.now()

	reclaimed, err := m.store.ReclaimExpiredLeases(ctx, now)
	report.Reclaimed = reclaimed
	for _, r := range reclaimed {
		logging.WarnWithContext(logging.WithContext(services.WithEntityID(ctx, r.EntityID), m.logger),
			"processing lease expired", "lease_reclaimed",
			logging.String("from_state", string(r.From)),
			logging.String("to_state", string(r.To)),
			logging.String(logging.FieldErrorHint, "the external call did not finish; the step will be retried"),
		)
	}
	if err != nil {
		return report, err
	}

	families, err := m.store.ListFamilies(ctx)
	if err != nil {
		return report, err
	}
	for _, family := range families {
		rebuilt, err := m.ensureFamilyContext(ctx, family)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(services.WithFamilyID(ctx, family.ID), m.logger),
				"family context refresh failed", "family_context_rebuild_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "dependents wait until the family context is rebuilt"),
			)
			continue
		}
		if rebuilt {
			report.RebuiltContexts = append(report.RebuiltContexts, family.ID)
		}
	}

	if expiry := m.cfg.SuggestionExpiry(); expiry > 0 {
		expired, err := m.store.ExpireSuggestions(ctx, now.Add(-expiry), m.taxonomy.Policy().Threshold)
		if err != nil {
			return report, err
		}
		report.ExpiredSuggestions = expired
		if expired > 0 {
			m.logger.Info("expired low-confidence suggestions",
				logging.String(logging.FieldEventType, "suggestions_expired"),
				logging.Int64("count", expired),
			)
		}
	}
	return report, nil
}
