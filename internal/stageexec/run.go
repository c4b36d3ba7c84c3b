package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vecna/internal/catalog"
	"vecna/internal/logging"
	"vecna/internal/pipeline"
	"vecna/internal/services"
)

// Outcome is the result class of one step execution.
type Outcome string

const (
	// Succeeded means the entity advanced and its error was cleared.
	Succeeded Outcome = "succeeded"
	// Failed means the entity was rolled back and the error recorded.
	Failed Outcome = "failed"
	// Skipped means the step declined to start; nothing was written.
	Skipped Outcome = "skipped"
)

// Completion lists the data flags a successful step sets.
type Completion struct {
	ParsedText       bool
	Taxonomy         bool
	GeneratedContent bool
	// Attrs are added to the stage_complete log line.
	Attrs []logging.Attr
}

// Handler is the step contract used by the execution helper.
type Handler interface {
	// Precondition reports why the step cannot start. An ErrPrecondition
	// skips the step without recording anything on the entity; any other
	// error is returned to the caller.
	Precondition(context.Context, *catalog.Entity) error
	// Execute performs the step's external work.
	Execute(context.Context, *catalog.Entity) (Completion, error)
}

// Options controls step execution and state persistence.
type Options struct {
	Logger    *slog.Logger
	Store     *catalog.Store
	Handler   Handler
	StageName string
	Entity    *catalog.Entity

	// From is the state the entity must hold for the step to start.
	From pipeline.State
	// Processing is written before Execute runs and acts as the lease. Steps
	// that leave it empty transition From -> Done directly.
	Processing pipeline.State
	Done       pipeline.State
	// Lease bounds how long Processing may be held before reconciliation
	// demotes it.
	Lease time.Duration
	// Timeout bounds Execute. Zero leaves the caller's deadline in force.
	Timeout time.Duration
}

// Result describes what a step did to its entity.
type Result struct {
	Outcome Outcome
	// Entity is the row as persisted after the step.
	Entity *catalog.Entity
	// Err explains a failure or a skip. It is nil on success.
	Err error
}

// Run executes one step with the optimistic write then rollback contract:
// the processing state is persisted before the external call so pollers can
// observe it, success advances to Done, and failure returns the entity to
// From with the diagnostic recorded. The returned error is reserved for
// persistence problems; step failures are reported through Result.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Handler == nil {
		return Result{}, fmt.Errorf("step handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return Result{}, errors.New("catalog store is required")
	}
	if opts.Entity == nil {
		return Result{}, errors.New("entity is required")
	}
	entity := opts.Entity

	stageCtx := logging.WithStage(ctx, opts.StageName)
	stageCtx = services.WithEntityID(stageCtx, entity.ID)
	stageCtx = services.WithFamilyID(stageCtx, entity.FamilyID)
	if _, ok := services.RequestIDFromContext(stageCtx); !ok {
		stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	}
	logger := logging.WithContext(stageCtx, opts.Logger)

	if entity.State != opts.From {
		err := services.Wrap(services.ErrStateConflict, opts.StageName, "start",
			fmt.Sprintf("entity is %s, step requires %s", entity.State, opts.From), nil)
		return skip(logger, entity, err), nil
	}
	if err := opts.Handler.Precondition(stageCtx, entity); err != nil {
		if errors.Is(err, services.ErrPrecondition) {
			return skip(logger, entity, err), nil
		}
		return Result{}, fmt.Errorf("check %s precondition: %w", opts.StageName, err)
	}

	logger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("from_state", string(opts.From)),
		logging.String("processing_state", string(opts.Processing)),
		logging.String("entity_name", strings.TrimSpace(entity.Name)),
	)
	start := time.Now()

	current := opts.From
	if opts.Processing != "" {
		change := catalog.StateChange{From: opts.From, To: opts.Processing}
		if opts.Lease > 0 {
			change.LeaseExpiresAt = time.Now().Add(opts.Lease)
		}
		claimed, err := opts.Store.Transition(stageCtx, entity.ID, change)
		if errors.Is(err, services.ErrStateConflict) {
			// Another invocation holds the lease.
			return skip(logger, entity, err), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("persist processing transition: %w", err)
		}
		entity = claimed
		current = opts.Processing
	}

	execCtx := stageCtx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(stageCtx, opts.Timeout)
		defer cancel()
	}
	completion, execErr := opts.Handler.Execute(execCtx, entity)
	if execErr != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) && !errors.Is(execErr, services.ErrTimeout) {
		execErr = services.Diagnose(services.ErrTimeout,
			fmt.Sprintf("%s timed out after %s", opts.StageName, opts.Timeout), execErr)
	}
	if execErr != nil {
		return handleFailure(stageCtx, logger, opts, entity, current, execErr)
	}

	done, err := opts.Store.Transition(stageCtx, entity.ID, catalog.StateChange{
		From:                 current,
		To:                   opts.Done,
		ClearError:           true,
		MarkParsedText:       completion.ParsedText,
		MarkTaxonomy:         completion.Taxonomy,
		MarkGeneratedContent: completion.GeneratedContent,
	})
	if err != nil {
		return Result{}, fmt.Errorf("persist stage result: %w", err)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_state", string(done.State)),
		logging.Duration("stage_duration", time.Since(start)),
	}
	attrs = append(attrs, completion.Attrs...)
	logger.Info("stage completed", logging.Args(attrs...)...)

	return Result{Outcome: Succeeded, Entity: done}, nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, entity *catalog.Entity, current pipeline.State, stageErr error) (Result, error) {
	message := services.DiagnosticMessage(stageErr)
	if message == "" {
		message = opts.StageName + " failed"
	}

	// The rollback must land even when the step's own deadline fired.
	persistCtx := context.WithoutCancel(ctx)
	rolled, err := opts.Store.Transition(persistCtx, entity.ID, catalog.StateChange{
		From:      current,
		To:        opts.From,
		LastError: message,
	})
	if err != nil {
		logger.Error("failed to persist stage failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "stage_failure_persist_failed"),
			logging.String(logging.FieldErrorHint, "entity may remain in a processing state until its lease expires"),
		)
		return Result{}, fmt.Errorf("persist stage failure: %w", err)
	}

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_state", string(rolled.State)),
		logging.String("error_message", message),
		logging.Bool("retryable", services.Retryable(stageErr)),
		logging.Error(stageErr),
	)
	return Result{Outcome: Failed, Entity: rolled, Err: stageErr}, nil
}

func skip(logger *slog.Logger, entity *catalog.Entity, reason error) Result {
	logger.Info(
		"stage skipped",
		logging.String(logging.FieldEventType, "stage_skipped"),
		logging.String("state", string(entity.State)),
		logging.String("reason", services.DiagnosticMessage(reason)),
	)
	return Result{Outcome: Skipped, Entity: entity, Err: reason}
}
