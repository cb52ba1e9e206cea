package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/task"
	"github.com/lblod/entity-linker/internal/task/tasktest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingQueue logs the order of queue calls.
type recordingQueue struct {
	*tasktest.Store
	mu    sync.Mutex
	calls []string
}

func (q *recordingQueue) FailBusy(ctx context.Context, ops []models.Operation) (int, error) {
	q.mu.Lock()
	q.calls = append(q.calls, "FailBusy")
	q.mu.Unlock()
	return q.Store.FailBusy(ctx, ops)
}

func (q *recordingQueue) NextScheduled(ctx context.Context, ops []models.Operation) (string, error) {
	q.mu.Lock()
	q.calls = append(q.calls, "NextScheduled")
	q.mu.Unlock()
	return q.Store.NextScheduled(ctx, ops)
}

func (q *recordingQueue) Calls() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.calls...)
}

type fakeReady struct {
	err   error
	calls int
}

func (f *fakeReady) WaitReady(context.Context, time.Duration) error {
	f.calls++
	return f.err
}

func newTestCoordinator(t *testing.T, store *tasktest.Store, proc task.Processor, ready ReadyWaiter) (*Coordinator, *recordingQueue) {
	t.Helper()
	reg, err := task.NewRegistry(task.Registration{Operation: models.OperationNamedEntityLinking, Processor: proc})
	require.NoError(t, err)
	exec := task.NewExecutor(store, reg, "worker-test", nil, testLogger())
	queue := &recordingQueue{Store: store}
	c := NewCoordinator(queue, exec, ready, CoordinatorOptions{PollInterval: time.Hour}, testLogger())
	return c, queue
}

func addTask(store *tasktest.Store, uri string, status models.TaskStatus) {
	store.Add(uri, tasktest.Task{Operation: models.OperationNamedEntityLinking, Status: status})
}

var succeed = task.ProcessorFunc(func(context.Context, string) ([]string, error) {
	return []string{task.ContainerBase + "out"}, nil
})

func TestRecoverFailsBusyBeforeSelection(t *testing.T) {
	store := tasktest.New()
	addTask(store, "busy-1", models.StatusBusy)
	addTask(store, "busy-2", models.StatusBusy)
	addTask(store, "open-1", models.StatusScheduled)
	store.Add("other-busy", tasktest.Task{Operation: "http://example.org/other", Status: models.StatusBusy})

	ready := &fakeReady{}
	c, queue := newTestCoordinator(t, store, succeed, ready)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		got, _ := store.Get("open-1")
		return got.Status == models.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, ready.calls)
	calls := queue.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "FailBusy", calls[0], "recovery precedes selection")

	for _, uri := range []string{"busy-1", "busy-2"} {
		assert.Equal(t, []models.TaskStatus{models.StatusBusy, models.StatusFailed}, store.History(uri))
	}
	assert.Equal(t, []models.TaskStatus{models.StatusBusy}, store.History("other-busy"), "unregistered operations are left alone")
	assert.Equal(t, []models.TaskStatus{models.StatusScheduled, models.StatusBusy, models.StatusSuccess}, store.History("open-1"))
}

func TestRecoverWaitsForStore(t *testing.T) {
	store := tasktest.New()
	addTask(store, "busy-1", models.StatusBusy)
	c, queue := newTestCoordinator(t, store, succeed, &fakeReady{err: context.DeadlineExceeded})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, queue.Calls())
	assert.Equal(t, []models.TaskStatus{models.StatusBusy}, store.History("busy-1"))
}

func TestDrainRunsTasksSequentially(t *testing.T) {
	store := tasktest.New()
	for _, uri := range []string{"t1", "t2", "t3"} {
		addTask(store, uri, models.StatusScheduled)
	}

	var order []string
	proc := task.ProcessorFunc(func(_ context.Context, uri string) ([]string, error) {
		order = append(order, uri)
		if uri == "t2" {
			return nil, errors.New("agent gave up")
		}
		return nil, nil
	})

	c, _ := newTestCoordinator(t, store, proc, nil)
	var delays []time.Duration
	c.opts.TaskDelay = 5 * time.Second
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	n, err := c.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"t1", "t2", "t3"}, order)
	assert.Len(t, delays, 3, "pause after every task")

	for uri, want := range map[string]models.TaskStatus{
		"t1": models.StatusSuccess,
		"t2": models.StatusFailed,
		"t3": models.StatusSuccess,
	} {
		got, _ := store.Get(uri)
		assert.Equal(t, want, got.Status, uri)
	}
}

func TestDrainStopsOnContext(t *testing.T) {
	store := tasktest.New()
	addTask(store, "t1", models.StatusScheduled)
	addTask(store, "t2", models.StatusScheduled)

	ctx, cancel := context.WithCancel(context.Background())
	proc := task.ProcessorFunc(func(ctx context.Context, _ string) ([]string, error) {
		cancel()
		return nil, ctx.Err()
	})
	c, _ := newTestCoordinator(t, store, proc, nil)

	n, err := c.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)

	got, _ := store.Get("t2")
	assert.Equal(t, models.StatusScheduled, got.Status, "no new task selected after cancel")
}

func TestRunTrigger(t *testing.T) {
	store := tasktest.New()
	c, queue := newTestCoordinator(t, store, succeed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// First drain finds nothing.
	require.Eventually(t, func() bool {
		return len(queue.Calls()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	addTask(store, "late", models.StatusScheduled)
	c.Trigger()

	require.Eventually(t, func() bool {
		got, _ := store.Get("late")
		return got.Status == models.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	c, _ := newTestCoordinator(t, tasktest.New(), succeed, nil)
	for range 10 {
		c.Trigger()
	}
	assert.Len(t, c.trigger, 1)
}
