package task

import (
	"context"
	"time"
)

// SetSleep replaces the delay function used between attempts.
func (p *EntityLinking) SetSleep(f func(ctx context.Context, d time.Duration) error) {
	p.sleep = f
}

// SetIdentity makes generated ids and timestamps deterministic.
func (s *SPARQLStore) SetIdentity(newID func() string, now func() time.Time) {
	s.newID = newID
	s.now = now
}
