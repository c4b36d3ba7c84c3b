package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/preflight"
	"vecna/internal/stageexec"
)

// ErrWorkerRunning reports that another worker holds the lock file.
var ErrWorkerRunning = errors.New("another vecna worker is running")

// Run polls for eligible entities and advances them until ctx is cancelled.
// Entities that belong to a family are advanced through AdvanceFamily so
// the base-before-dependents ordering holds. A lock file keeps a second
// worker from running against the same catalog.
func (m *Manager) Run(ctx context.Context) error {
	lock := flock.New(m.cfg.WorkerLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}
	if !ok {
		return ErrWorkerRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release worker lock", logging.Error(err))
		}
	}()

	pollInterval := time.Duration(m.cfg.Workflow.QueuePollInterval) * time.Second
	reconcileInterval := time.Duration(m.cfg.Workflow.ReconcileInterval) * time.Second
	m.logger.Info("worker started",
		logging.String(logging.FieldEventType, "worker_start"),
		logging.String("lock", m.cfg.WorkerLockPath()),
		logging.Duration("poll_interval", pollInterval),
	)
	m.runPreflight(ctx)

	var lastReconcile time.Time
	for {
		if err := ctx.Err(); err != nil {
			m.logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stop"))
			return nil
		}

		if reconcileInterval > 0 && time.Since(lastReconcile) >= reconcileInterval {
			if _, err := m.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(m.logger, "reconciliation failed; stuck entities may remain", "reconcile_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check catalog database access"),
				)
			}
			lastReconcile = time.Now()
		}

		progressed, err := m.Poll(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("worker pass failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_pass_failed"),
				logging.String(logging.FieldErrorHint, "check catalog database access"),
			)
		}
		if progressed {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(pollInterval):
		}
	}
}

// runPreflight logs failed readiness checks. The worker keeps running: a
// service that is down only fails the steps that call it.
func (m *Manager) runPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, m.cfg, m.store) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(m.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "steps that depend on this check will fail until it passes"),
		)
	}
}

// Poll runs one worker pass over the currently eligible entities and reports
// whether any of them advanced.
func (m *Manager) Poll(ctx context.Context) (bool, error) {
	limit := m.cfg.Workflow.MaxParallel * 4
	entities, err := m.store.ListEligible(ctx, limit)
	if err != nil {
		return false, err
	}
	if len(entities) == 0 {
		return false, nil
	}

	families, standalone := partitionByFamily(entities)
	var (
		progressed bool
		results    = make(chan bool, len(families)+len(standalone))
	)
	group, groupCtx := errgroup.WithContext(ctx)
	if m.cfg.Workflow.MaxParallel > 0 {
		group.SetLimit(m.cfg.Workflow.MaxParallel)
	}
	for _, familyID := range families {
		group.Go(func() error {
			run, err := m.AdvanceFamily(groupCtx, familyID)
			for _, steps := range run.Steps {
				if anySucceeded(steps) {
					results <- true
					break
				}
			}
			return err
		})
	}
	for _, id := range standalone {
		group.Go(func() error {
			steps, err := m.Drive(groupCtx, id)
			if anySucceeded(steps) {
				results <- true
			}
			return err
		})
	}
	err = group.Wait()
	close(results)
	for ok := range results {
		progressed = progressed || ok
	}
	return progressed, err
}

func partitionByFamily(entities []*catalog.Entity) ([]int64, []int64) {
	seen := make(map[int64]struct{})
	var families, standalone []int64
	for _, e := range entities {
		if e.FamilyID == 0 {
			standalone = append(standalone, e.ID)
			continue
		}
		if _, ok := seen[e.FamilyID]; ok {
			continue
		}
		seen[e.FamilyID] = struct{}{}
		families = append(families, e.FamilyID)
	}
	return families, standalone
}

func anySucceeded(steps []Step) bool {
	for _, s := range steps {
		if s.Outcome == stageexec.Succeeded {
			return true
		}
	}
	return false
}
