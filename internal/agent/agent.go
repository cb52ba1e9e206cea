// Package agent answers entity-linking questions with a tool-calling LLM.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lblod/entity-linker/internal/models"
)

// ErrTimeout is returned when an agent call exceeds its wall-clock budget.
var ErrTimeout = errors.New("agent timed out")

// ErrInvalidResponse is returned when the final answer is not the expected JSON.
var ErrInvalidResponse = errors.New("invalid agent response")

// ErrMaxSteps is returned when the model keeps calling tools past the step limit.
var ErrMaxSteps = errors.New("agent exceeded maximum steps")

// Agent is the entity-linking capability consumed by tasks and the HTTP API.
type Agent interface {
	// Run answers a free-form question.
	Run(ctx context.Context, question string) (*models.LinkResponse, error)

	// RunStructured looks up the URI of one recognized entity.
	RunStructured(ctx context.Context, req models.LinkRequest) (*models.LinkResponse, error)
}

// StructuredQuestion renders a link request as an agent question.
func StructuredQuestion(req models.LinkRequest) string {
	return fmt.Sprintf("Write a SPARQL query to find the URI of the %s %s in region %s, execute it and return the results.\n"+
		"Keep iterating until you find the best possible match. Provide reasoning for your selection.",
		req.EntityClass, req.EntityLabel, req.Location)
}

type timeoutAgent struct {
	agent   Agent
	timeout time.Duration
}

// WithTimeout bounds every call of a to d. Calls that run out of time fail
// with ErrTimeout. A non-positive d returns a unchanged.
func WithTimeout(a Agent, d time.Duration) Agent {
	if d <= 0 {
		return a
	}
	return &timeoutAgent{agent: a, timeout: d}
}

func (t *timeoutAgent) Run(ctx context.Context, question string) (*models.LinkResponse, error) {
	return t.bounded(ctx, func(ctx context.Context) (*models.LinkResponse, error) {
		return t.agent.Run(ctx, question)
	})
}

func (t *timeoutAgent) RunStructured(ctx context.Context, req models.LinkRequest) (*models.LinkResponse, error) {
	return t.bounded(ctx, func(ctx context.Context) (*models.LinkResponse, error) {
		return t.agent.RunStructured(ctx, req)
	})
}

func (t *timeoutAgent) bounded(parent context.Context, fn func(context.Context) (*models.LinkResponse, error)) (*models.LinkResponse, error) {
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	resp, err := fn(ctx)
	if err != nil && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
	}
	return resp, err
}

// fatalPatterns mark provider errors that retrying will not fix.
var fatalPatterns = []string{
	"credit balance",
	"rate limit",
	"quota exceeded",
	"billing",
	"invalid api key",
	"authentication failed",
	"unauthorized",
	"401",
	"403",
}

// ErrFatalAPI marks LLM provider errors caused by credentials or quota.
var ErrFatalAPI = errors.New("fatal LLM API error")

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// wrapFatalError tags err with ErrFatalAPI when it looks fatal.
func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %w", ErrFatalAPI, err)
	}
	return err
}
