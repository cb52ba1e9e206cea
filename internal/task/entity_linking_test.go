package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/task"
	"github.com/lblod/entity-linker/internal/task/tasktest"
)

const annotationURI = "http://data.lblod.info/id/annotations/ner-1"

type linkerStep struct {
	resp *models.LinkResponse
	err  error
}

// fakeLinker replays steps in order, repeating the last one.
type fakeLinker struct {
	steps    []linkerStep
	requests []models.LinkRequest
}

func (f *fakeLinker) RunStructured(_ context.Context, req models.LinkRequest) (*models.LinkResponse, error) {
	f.requests = append(f.requests, req)
	step := f.steps[min(len(f.requests), len(f.steps))-1]
	return step.resp, step.err
}

func found(uri string) linkerStep {
	return linkerStep{resp: &models.LinkResponse{Results: []models.LinkResult{{URI: uri, Label: "Jane Doe", Reasoning: "exact label"}}}}
}

func janeDoe() tasktest.Task {
	t := scheduled()
	t.Input = &models.EntityInput{
		Annotation:  annotationURI,
		EntityClass: "Person",
		EntityLabel: "Jane Doe",
	}
	return t
}

type sleepRecorder struct{ delays []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newLinking(store task.Store, linker task.Linker, attempts int) (*task.EntityLinking, *sleepRecorder) {
	p := task.NewEntityLinking(store, linker, task.RetryPolicy{MaxAttempts: attempts, Delay: 5 * time.Second}, testLogger())
	rec := &sleepRecorder{}
	p.SetSleep(rec.sleep)
	return p, rec
}

func TestEntityLinkingLinksAnnotation(t *testing.T) {
	store := tasktest.New()
	store.Add(taskURI, janeDoe())
	linker := &fakeLinker{steps: []linkerStep{found("http://data.lblod.info/id/persons/jane")}}
	p, rec := newLinking(store, linker, 3)

	exec := newExecutor(t, store, p, nil)
	require.NoError(t, exec.Execute(context.Background(), taskURI))

	require.Len(t, linker.requests, 1, "success ends the retry loop")
	assert.Equal(t, models.LinkRequest{EntityClass: "Person", EntityLabel: "Jane Doe", Location: models.UnknownLocation}, linker.requests[0])
	assert.Empty(t, rec.delays)

	links := store.Links()
	require.Len(t, links, 1)
	assert.Equal(t, annotationURI, links[0].Source)
	assert.Equal(t, "http://data.lblod.info/id/persons/jane", links[0].Match)

	containers := store.Containers()
	require.Len(t, containers, 1)

	got, _ := store.Get(taskURI)
	require.Len(t, got.Results, 1)
	assert.Equal(t, links[0].Copy, containers[got.Results[0]])
	assert.Equal(t, []models.TaskStatus{models.StatusScheduled, models.StatusBusy, models.StatusSuccess}, store.History(taskURI))
}

// A run where the agent never proposes a URI is a success without output.
// Not finding a match is not treated as an error.
func TestEntityLinkingNoCandidateSucceedsEmpty(t *testing.T) {
	store := tasktest.New()
	store.Add(taskURI, janeDoe())
	linker := &fakeLinker{steps: []linkerStep{
		{resp: &models.LinkResponse{}},
		{resp: &models.LinkResponse{Results: []models.LinkResult{{Label: "no uri"}}}},
	}}
	p, rec := newLinking(store, linker, 3)

	exec := newExecutor(t, store, p, nil)
	require.NoError(t, exec.Execute(context.Background(), taskURI))

	assert.Len(t, linker.requests, 3)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, rec.delays)
	assert.Empty(t, store.Links())
	assert.Empty(t, store.Containers())

	got, _ := store.Get(taskURI)
	assert.Empty(t, got.Results)
	assert.Equal(t, []models.TaskStatus{models.StatusScheduled, models.StatusBusy, models.StatusSuccess}, store.History(taskURI))
}

func TestEntityLinkingRetryBound(t *testing.T) {
	for _, attempts := range []int{1, 3, 5} {
		store := tasktest.New()
		store.Add(taskURI, janeDoe())
		boom := errors.New("timeout")
		linker := &fakeLinker{steps: []linkerStep{{err: boom}}}
		p, rec := newLinking(store, linker, attempts)

		exec := newExecutor(t, store, p, nil)
		err := exec.Execute(context.Background(), taskURI)

		assert.ErrorIs(t, err, boom)
		assert.Len(t, linker.requests, attempts, "exactly the configured attempts")
		assert.Len(t, rec.delays, attempts-1)
		assert.Equal(t, []models.TaskStatus{models.StatusScheduled, models.StatusBusy, models.StatusFailed}, store.History(taskURI))
	}
}

func TestEntityLinkingRecoversAfterFailure(t *testing.T) {
	store := tasktest.New()
	store.Add(taskURI, janeDoe())
	linker := &fakeLinker{steps: []linkerStep{
		{err: errors.New("flaky")},
		found("http://data.lblod.info/id/persons/jane"),
	}}
	p, _ := newLinking(store, linker, 3)

	containers, err := p.Process(context.Background(), taskURI)
	require.NoError(t, err)
	assert.Len(t, containers, 1)
	assert.Len(t, linker.requests, 2)
}

func TestEntityLinkingMissingInput(t *testing.T) {
	store := tasktest.New()
	store.Add(taskURI, scheduled())
	linker := &fakeLinker{steps: []linkerStep{found("x")}}
	p, _ := newLinking(store, linker, 2)

	_, err := p.Process(context.Background(), taskURI)
	assert.ErrorIs(t, err, task.ErrInputNotFound)
	assert.Empty(t, linker.requests)
}

func TestEntityLinkingStopsOnCancel(t *testing.T) {
	store := tasktest.New()
	store.Add(taskURI, janeDoe())
	linker := &fakeLinker{steps: []linkerStep{{err: errors.New("down")}}}
	p := task.NewEntityLinking(store, linker, task.RetryPolicy{MaxAttempts: 5, Delay: time.Hour}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.Process(ctx, taskURI)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, linker.requests, 1)
}
