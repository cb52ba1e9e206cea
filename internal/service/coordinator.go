// Package service drives background task processing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/task"
)

// Executor runs single tasks; *task.Executor implements it.
type Executor interface {
	Operations() []models.Operation
	Execute(ctx context.Context, uri string) error
}

var _ Executor = (*task.Executor)(nil)

// Queue is the part of task.Store the coordinator polls.
type Queue interface {
	FailBusy(ctx context.Context, operations []models.Operation) (int, error)
	NextScheduled(ctx context.Context, operations []models.Operation) (string, error)
}

// ReadyWaiter blocks until the store accepts queries.
type ReadyWaiter interface {
	WaitReady(ctx context.Context, interval time.Duration) error
}

// CoordinatorOptions configures polling and delays.
type CoordinatorOptions struct {
	PollInterval  time.Duration // idle wait between drains
	TaskDelay     time.Duration // pause after each task
	StartupDelay  time.Duration // pause between recovery and the first drain
	ReadyInterval time.Duration // store readiness probe interval
}

// Coordinator selects open tasks one at a time and executes them. Only one
// task is in flight per coordinator.
type Coordinator struct {
	queue   Queue
	exec    Executor
	ready   ReadyWaiter
	opts    CoordinatorOptions
	logger  *slog.Logger
	trigger chan struct{}
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewCoordinator creates a coordinator. ready may be nil.
func NewCoordinator(queue Queue, exec Executor, ready ReadyWaiter, opts CoordinatorOptions, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = time.Second
	}
	return &Coordinator{
		queue:   queue,
		exec:    exec,
		ready:   ready,
		opts:    opts,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		sleep:   sleepCtx,
	}
}

// Trigger requests a drain without waiting for the poll interval. It never
// blocks; triggers that arrive during a drain coalesce into one.
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Recover waits for the store, then fails every task left BUSY by a previous
// process. It must complete before any task is selected.
func (c *Coordinator) Recover(ctx context.Context) error {
	if c.ready != nil {
		if err := c.ready.WaitReady(ctx, c.opts.ReadyInterval); err != nil {
			return fmt.Errorf("wait for store: %w", err)
		}
	}

	c.logger.Info("failing busy tasks")
	n, err := c.queue.FailBusy(ctx, c.exec.Operations())
	if err != nil {
		return fmt.Errorf("fail busy tasks: %w", err)
	}
	if n > 0 {
		c.logger.Warn("failed tasks left busy by a previous run", "count", n)
	}
	return nil
}

// Drain executes open tasks until none is left and returns how many were
// executed. Task failures are logged; only store and context errors stop
// the drain.
func (c *Coordinator) Drain(ctx context.Context) (int, error) {
	c.logger.Debug("checking for open tasks")
	ops := c.exec.Operations()
	executed := 0

	for {
		uri, err := c.queue.NextScheduled(ctx, ops)
		if err != nil {
			return executed, fmt.Errorf("select open task: %w", err)
		}
		if uri == "" {
			return executed, nil
		}

		c.logger.Info("processing task", "task", uri)
		err = c.exec.Execute(ctx, uri)
		switch {
		case err == nil:
			executed++
		case errors.Is(err, task.ErrNotClaimed):
			c.logger.Info("task claimed by another worker", "task", uri)
		case ctx.Err() != nil:
			return executed, ctx.Err()
		default:
			executed++
			c.logger.Error("task execution failed", "task", uri, "error", err)
		}

		if err := c.sleep(ctx, c.opts.TaskDelay); err != nil {
			return executed, err
		}
	}
}

// Run recovers, waits the start-up delay and then drains open tasks every
// poll interval or on Trigger until ctx ends.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.Recover(ctx); err != nil {
		return err
	}
	if err := c.sleep(ctx, c.opts.StartupDelay); err != nil {
		return nil
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		n, err := c.Drain(ctx)
		if ctx.Err() != nil {
			c.logger.Info("coordinator stopped")
			return nil
		}
		if err != nil {
			c.logger.Error("draining open tasks failed", "error", err)
		} else if n > 0 {
			c.logger.Info("processing open tasks finished", "executed", n)
		}

		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return nil
		case <-ticker.C:
		case <-c.trigger:
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
