package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lblod/entity-linker/internal/models"
)

// Linker finds canonical URIs for a recognized entity.
type Linker interface {
	RunStructured(ctx context.Context, req models.LinkRequest) (*models.LinkResponse, error)
}

// RetryPolicy bounds the attempts of one entity-linking task.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// EntityLinking links the entity of a task's input annotation to a
// canonical URI and publishes an enriched copy of the annotation.
type EntityLinking struct {
	store  Store
	linker Linker
	retry  RetryPolicy
	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

var _ Processor = (*EntityLinking)(nil)

// NewEntityLinking creates the named-entity-linking processor.
func NewEntityLinking(store Store, linker Linker, retry RetryPolicy, logger *slog.Logger) *EntityLinking {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &EntityLinking{store: store, linker: linker, retry: retry, logger: logger, sleep: sleepCtx}
}

// Registration returns the registry entry for this processor.
func (p *EntityLinking) Registration() Registration {
	return Registration{Operation: models.OperationNamedEntityLinking, Processor: p}
}

// Process makes up to MaxAttempts attempts. An attempt that links the entity
// ends processing. An attempt without a usable candidate is not an error:
// the remaining attempts are still made and, if none links, Process returns
// no containers and no error. The last attempt's error is returned when
// every attempt failed.
func (p *EntityLinking) Process(ctx context.Context, uri string) ([]string, error) {
	log := p.logger.With("task", uri, "operation", "named-entity-linking")

	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		container, err := p.attempt(ctx, uri, log)
		switch {
		case err != nil && attempt == p.retry.MaxAttempts:
			log.Error("max retries reached", "attempts", attempt, "error", err)
			return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
		case err != nil:
			log.Warn("attempt failed, retrying", "attempt", attempt, "max", p.retry.MaxAttempts, "error", err)
		case container != "":
			return []string{container}, nil
		default:
			log.Info("no candidate uri found", "attempt", attempt, "max", p.retry.MaxAttempts)
		}

		if attempt < p.retry.MaxAttempts {
			if err := p.sleep(ctx, p.retry.Delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

// attempt returns the created output container, or "" when the agent
// proposed no URI.
func (p *EntityLinking) attempt(ctx context.Context, uri string, log *slog.Logger) (string, error) {
	input, err := p.store.FetchInput(ctx, uri)
	if err != nil {
		return "", err
	}
	log.Info("fetched input", "annotation", input.Annotation, "class", input.EntityClass, "label", input.EntityLabel, "location", input.Location)

	resp, err := p.linker.RunStructured(ctx, models.LinkRequest{
		EntityClass: input.EntityClass,
		EntityLabel: input.EntityLabel,
		Location:    input.Location,
	})
	if err != nil {
		return "", fmt.Errorf("link entity: %w", err)
	}

	match, ok := resp.FirstURI()
	if !ok {
		return "", nil
	}
	log.Info("linking annotation", "match", match)

	annotation, err := p.store.CopyAnnotation(ctx, input.Annotation, match)
	if err != nil {
		return "", err
	}
	// An annotation copied here stays even if creating its container fails.
	container, err := p.store.CreateOutputContainer(ctx, annotation)
	if err != nil {
		return "", err
	}
	log.Info("created output container", "annotation", annotation, "container", container)
	return container, nil
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
