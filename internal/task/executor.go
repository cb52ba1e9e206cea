package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/models"
)

// Executor runs tasks through SCHEDULED -> BUSY -> SUCCESS|FAILED.
type Executor struct {
	store    Store
	registry *Registry
	workerID string
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewExecutor creates an executor claiming tasks as workerID.
func NewExecutor(store Store, registry *Registry, workerID string, m *metrics.Collector, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, registry: registry, workerID: workerID, metrics: m, logger: logger}
}

// Operations returns the operations this executor can run.
func (e *Executor) Operations() []models.Operation {
	return e.registry.Operations()
}

// Resolve reads the operation of uri and returns its processor. It returns
// ErrTaskNotFound or ErrUnknownOperation.
func (e *Executor) Resolve(ctx context.Context, uri string) (Processor, error) {
	op, err := e.store.OperationOf(ctx, uri)
	if err != nil {
		return nil, err
	}
	return e.registry.Lookup(op)
}

// Execute claims uri, runs its processor and records the outcome. Any
// processing error moves the task to FAILED and is returned, as does a
// failure to publish the results. ErrNotClaimed means another worker owns
// the task and nothing was changed.
func (e *Executor) Execute(ctx context.Context, uri string) error {
	proc, err := e.Resolve(ctx, uri)
	if err != nil {
		return err
	}

	if err := e.store.Claim(ctx, uri, e.workerID); err != nil {
		if errors.Is(err, ErrClaimUnverified) {
			e.logger.Error("claim unverified, failing task", "task", uri, "error", err)
			return errors.Join(err, e.fail(context.WithoutCancel(ctx), uri, err))
		}
		return err
	}

	log := e.logger.With("task", uri)
	log.Info("running task")
	start := time.Now()

	containers, procErr := proc.Process(ctx, uri)

	// The terminal transition must land even when ctx was cancelled mid-run.
	finishCtx := context.WithoutCancel(ctx)

	if procErr != nil {
		e.metrics.RecordTiming(metrics.OpTaskFailed, time.Since(start))
		log.Error("task failed", "error", procErr, "duration_ms", time.Since(start).Milliseconds())
		return errors.Join(procErr, e.fail(finishCtx, uri, procErr))
	}

	// Results are attached before SUCCESS so delta consumers never see a
	// successful task without its containers.
	if err := e.store.AttachResults(finishCtx, uri, containers); err != nil {
		return e.abort(finishCtx, uri, start, fmt.Errorf("attach results: %w", err))
	}
	if err := e.store.ChangeStatus(finishCtx, uri, models.StatusSuccess); err != nil {
		return e.abort(finishCtx, uri, start, fmt.Errorf("mark success: %w", err))
	}

	e.metrics.RecordTiming(metrics.OpTaskSuccess, time.Since(start))
	log.Info("task succeeded", "results", len(containers), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// abort moves a task that finished processing but could not be published
// to FAILED.
func (e *Executor) abort(ctx context.Context, uri string, start time.Time, cause error) error {
	e.metrics.RecordTiming(metrics.OpTaskFailed, time.Since(start))
	e.logger.Error("task failed", "task", uri, "error", cause)
	return errors.Join(cause, e.fail(ctx, uri, cause))
}

func (e *Executor) fail(ctx context.Context, uri string, cause error) error {
	if err := e.store.ChangeStatus(ctx, uri, models.StatusFailed); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if err := e.store.RecordError(ctx, uri, cause.Error()); err != nil {
		// Status is already FAILED; the message is best effort.
		e.logger.Warn("failed to record task error", "task", uri, "error", err)
	}
	return nil
}
