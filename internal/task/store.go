// Package task implements the task state machine that turns a triplestore
// into a durable job queue, and the operations that run on it.
package task

import (
	"context"

	"github.com/lblod/entity-linker/internal/models"
)

// Store is the persistence contract for tasks and the annotation resources
// they read and produce.
type Store interface {
	// OperationOf returns the task:operation of uri, or ErrTaskNotFound.
	OperationOf(ctx context.Context, uri string) (models.Operation, error)

	// Load reads the full task resource, or ErrTaskNotFound.
	Load(ctx context.Context, uri string) (*models.Task, error)

	// Claim moves uri from SCHEDULED to BUSY on behalf of workerID in one
	// conditional update. It returns ErrNotClaimed when the task was not
	// SCHEDULED or another worker's claim landed.
	Claim(ctx context.Context, uri, workerID string) error

	// ChangeStatus replaces the status of uri and bumps dct:modified.
	ChangeStatus(ctx context.Context, uri string, status models.TaskStatus) error

	// AttachResults links output containers to uri in fixed-size batches.
	AttachResults(ctx context.Context, uri string, containers []string) error

	// RecordError stores message as a job error linked from uri.
	RecordError(ctx context.Context, uri, message string) error

	// FetchInput reads the recognized entity from the task's input container,
	// or ErrInputNotFound.
	FetchInput(ctx context.Context, uri string) (*models.EntityInput, error)

	// CopyAnnotation copies annotation with its body and entity, adds a
	// skos:exactMatch to match, and returns the new annotation URI.
	CopyAnnotation(ctx context.Context, annotation, match string) (string, error)

	// CreateOutputContainer wraps resource in a new data container and
	// returns its URI.
	CreateOutputContainer(ctx context.Context, resource string) (string, error)

	// FailBusy moves every BUSY task of the given operations to FAILED and
	// returns how many were BUSY.
	FailBusy(ctx context.Context, operations []models.Operation) (int, error)

	// NextScheduled returns one SCHEDULED task of the given operations, or ""
	// when none is open.
	NextScheduled(ctx context.Context, operations []models.Operation) (string, error)
}
