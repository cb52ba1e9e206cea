package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/lblod/entity-linker/internal/models"
)

// Processor does the operation-specific work of one task. It returns the
// output containers to attach once the task succeeds.
type Processor interface {
	Process(ctx context.Context, taskURI string) ([]string, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, taskURI string) ([]string, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, taskURI string) ([]string, error) {
	return f(ctx, taskURI)
}

// Registration binds an operation tag to its processor.
type Registration struct {
	Operation models.Operation
	Processor Processor
}

// Registry resolves operation tags to processors. It is built once at
// startup and read-only afterwards.
type Registry struct {
	ordered []Registration
	byOp    map[models.Operation]Processor
}

// NewRegistry validates regs and keeps them in the given order. Empty or
// duplicate tags and nil processors are rejected.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{byOp: make(map[models.Operation]Processor, len(regs))}
	for i, reg := range regs {
		if reg.Operation == "" {
			return nil, fmt.Errorf("registration %d: empty operation", i)
		}
		if reg.Processor == nil {
			return nil, fmt.Errorf("registration %d (%s): nil processor", i, reg.Operation)
		}
		if _, dup := r.byOp[reg.Operation]; dup {
			return nil, fmt.Errorf("registration %d: duplicate operation %s", i, reg.Operation)
		}
		r.byOp[reg.Operation] = reg.Processor
		r.ordered = append(r.ordered, reg)
	}
	if len(r.ordered) == 0 {
		return nil, errors.New("no operations registered")
	}
	return r, nil
}

// Lookup returns the processor for op, or ErrUnknownOperation.
func (r *Registry) Lookup(op models.Operation) (Processor, error) {
	p, ok := r.byOp[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	return p, nil
}

// Operations returns the registered tags in registration order.
func (r *Registry) Operations() []models.Operation {
	ops := make([]models.Operation, len(r.ordered))
	for i, reg := range r.ordered {
		ops[i] = reg.Operation
	}
	return ops
}
