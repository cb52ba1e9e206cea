// Package models defines the data structures shared by the entity linking service.
package models

import "time"

// TaskStatus is the adms:status of a task, expressed as a concept URI.
type TaskStatus string

const (
	StatusScheduled TaskStatus = "http://redpencil.data.gift/id/concept/JobStatus/scheduled"
	StatusBusy      TaskStatus = "http://redpencil.data.gift/id/concept/JobStatus/busy"
	StatusSuccess   TaskStatus = "http://redpencil.data.gift/id/concept/JobStatus/success"
	StatusFailed    TaskStatus = "http://redpencil.data.gift/id/concept/JobStatus/failed"
)

// Short returns the last path segment ("scheduled", "busy", ...).
func (s TaskStatus) Short() string {
	str := string(s)
	for i := len(str) - 1; i >= 0; i-- {
		if str[i] == '/' {
			return str[i+1:]
		}
	}
	return str
}

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Operation is the task:operation concept URI used for dispatch.
type Operation string

// OperationNamedEntityLinking links NER annotations to canonical URIs.
const OperationNamedEntityLinking Operation = "http://lblod.data.gift/id/jobs/concept/TaskOperation/named-entity-linking"

// Task is one unit of work stored as a task:Task resource.
type Task struct {
	URI       string
	ID        string
	JobURI    string
	JobID     string
	Status    TaskStatus
	Operation Operation
	Index     string
	Error     string
	Created   time.Time
	Modified  time.Time
}

// EntityInput is the recognized entity read from a task's input container.
type EntityInput struct {
	Annotation  string
	EntityClass string
	EntityLabel string
	Location    string
}

// UnknownLocation stands in when the recognized entity has no dct:spatial.
const UnknownLocation = "Unknown location"
