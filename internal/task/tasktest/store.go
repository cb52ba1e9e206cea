// Package tasktest provides an in-memory task.Store for tests.
package tasktest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/lblod/entity-linker/internal/models"
	"github.com/lblod/entity-linker/internal/task"
)

// Task is the stored state of one task.
type Task struct {
	Operation models.Operation
	Status    models.TaskStatus
	Input     *models.EntityInput
	ClaimedBy string
	Results   []string
	Errors    []string
}

// Link records one CopyAnnotation call.
type Link struct {
	Source, Match, Copy string
}

// Store is a goroutine-safe in-memory task.Store. Status changes are
// appended to History so tests can assert whole transition sequences.
type Store struct {
	mu         sync.Mutex
	tasks      map[string]*Task
	order      []string
	history    map[string][]models.TaskStatus
	links      []Link
	containers map[string]string
	seq        int

	// InputErr, when set, is returned by FetchInput.
	InputErr error
	// UpdateErr, when set, is returned by every status change.
	UpdateErr error
	// StatusErrs fails ChangeStatus for the listed target statuses only.
	StatusErrs map[models.TaskStatus]error
	// ResultsErr, when set, is returned by AttachResults.
	ResultsErr error
	// ClaimErr, when set, is returned by Claim after the claim was applied,
	// like a store whose verification read fails.
	ClaimErr error
}

var _ task.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		tasks:      make(map[string]*Task),
		history:    make(map[string][]models.TaskStatus),
		containers: make(map[string]string),
	}
}

// Add stores a task; NextScheduled returns tasks in insertion order.
func (s *Store) Add(uri string, t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tasks[uri] = &cp
	s.order = append(s.order, uri)
	s.history[uri] = []models.TaskStatus{t.Status}
}

// Get returns a copy of the stored task.
func (s *Store) Get(uri string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[uri]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// History returns every status uri has had, oldest first.
func (s *Store) History(uri string) []models.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TaskStatus(nil), s.history[uri]...)
}

// Links returns every annotation copy made.
func (s *Store) Links() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Link(nil), s.links...)
}

// Containers returns container URI -> resource for every created container.
func (s *Store) Containers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.containers))
	for k, v := range s.containers {
		out[k] = v
	}
	return out
}

func (s *Store) lookup(uri string) (*Task, error) {
	t, ok := s.tasks[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", task.ErrTaskNotFound, uri)
	}
	return t, nil
}

func (s *Store) setStatus(uri string, t *Task, status models.TaskStatus) {
	t.Status = status
	s.history[uri] = append(s.history[uri], status)
}

func (s *Store) OperationOf(_ context.Context, uri string) (models.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(uri)
	if err != nil {
		return "", err
	}
	return t.Operation, nil
}

func (s *Store) Load(_ context.Context, uri string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(uri)
	if err != nil {
		return nil, err
	}
	out := &models.Task{URI: uri, Status: t.Status, Operation: t.Operation}
	if n := len(t.Errors); n > 0 {
		out.Error = t.Errors[n-1]
	}
	return out, nil
}

func (s *Store) Claim(_ context.Context, uri, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	t, err := s.lookup(uri)
	if err != nil {
		return err
	}
	if t.Status != models.StatusScheduled {
		return fmt.Errorf("%w: %s", task.ErrNotClaimed, uri)
	}
	t.ClaimedBy = workerID
	s.setStatus(uri, t, models.StatusBusy)
	return s.ClaimErr
}

func (s *Store) ChangeStatus(_ context.Context, uri string, status models.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	if err := s.StatusErrs[status]; err != nil {
		return err
	}
	t, err := s.lookup(uri)
	if err != nil {
		return err
	}
	s.setStatus(uri, t, status)
	return nil
}

func (s *Store) AttachResults(_ context.Context, uri string, containers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ResultsErr != nil {
		return s.ResultsErr
	}
	t, err := s.lookup(uri)
	if err != nil {
		return err
	}
	t.Results = append(t.Results, containers...)
	return nil
}

func (s *Store) RecordError(_ context.Context, uri, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(uri)
	if err != nil {
		return err
	}
	t.Errors = append(t.Errors, message)
	return nil
}

func (s *Store) FetchInput(_ context.Context, uri string) (*models.EntityInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InputErr != nil {
		return nil, s.InputErr
	}
	t, err := s.lookup(uri)
	if err != nil {
		return nil, err
	}
	if t.Input == nil {
		return nil, fmt.Errorf("%w: %s", task.ErrInputNotFound, uri)
	}
	in := *t.Input
	if in.Location == "" {
		in.Location = models.UnknownLocation
	}
	return &in, nil
}

func (s *Store) CopyAnnotation(_ context.Context, annotation, match string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	uri := fmt.Sprintf("%s%d", task.AnnotationBase, s.seq)
	s.links = append(s.links, Link{Source: annotation, Match: match, Copy: uri})
	return uri, nil
}

func (s *Store) CreateOutputContainer(_ context.Context, resource string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	uri := fmt.Sprintf("%s%d", task.ContainerBase, s.seq)
	s.containers[uri] = resource
	return uri, nil
}

func (s *Store) FailBusy(_ context.Context, operations []models.Operation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, uri := range s.order {
		t := s.tasks[uri]
		if t.Status == models.StatusBusy && slices.Contains(operations, t.Operation) {
			s.setStatus(uri, t, models.StatusFailed)
			n++
		}
	}
	return n, nil
}

func (s *Store) NextScheduled(_ context.Context, operations []models.Operation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uri := range s.order {
		t := s.tasks[uri]
		if t.Status == models.StatusScheduled && slices.Contains(operations, t.Operation) {
			return uri, nil
		}
	}
	return "", nil
}
