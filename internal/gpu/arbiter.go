// Package gpu serializes access to the single GPU-resident model slot.
// Heavy inference stages must hold a lease while their model is loaded;
// at most one lease exists process-wide, and releasing a lease runs the
// holder's reclaim hook before the next acquisition can proceed.
package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Arbiter enforces the at-most-one-loaded-model discipline. It is a real
// mutex, so batches parallelized across videos still serialize correctly.
type Arbiter struct {
	logger *slog.Logger
	slot   chan struct{}

	mu       sync.Mutex
	resident string
}

func NewArbiter(logger *slog.Logger) *Arbiter {
	return &Arbiter{
		logger: logger,
		slot:   make(chan struct{}, 1),
	}
}

// Lease represents exclusive ownership of the model slot. Release is
// idempotent and always runs the reclaim hook exactly once.
type Lease struct {
	arb     *Arbiter
	stage   string
	reclaim func()
	once    sync.Once
}

// Acquire blocks until the model slot is free, then claims it for stage.
// The reclaim hook (may be nil) runs on Release, before the slot is freed.
func (a *Arbiter) Acquire(ctx context.Context, stage string, reclaim func()) (*Lease, error) {
	// A cancelled context never wins the slot, even if it is free.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquiring model slot for %s: %w", stage, err)
	}

	select {
	case a.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring model slot for %s: %w", stage, ctx.Err())
	}

	a.mu.Lock()
	a.resident = stage
	a.mu.Unlock()

	if a.logger != nil {
		a.logger.Debug("model slot acquired", "stage", stage)
	}
	return &Lease{arb: a, stage: stage, reclaim: reclaim}, nil
}

// Release reclaims device memory and frees the slot. Safe to call more
// than once; later calls are no-ops.
func (l *Lease) Release() {
	l.once.Do(func() {
		if l.reclaim != nil {
			l.reclaim()
		}

		l.arb.mu.Lock()
		l.arb.resident = ""
		l.arb.mu.Unlock()

		<-l.arb.slot

		if l.arb.logger != nil {
			l.arb.logger.Debug("model slot released", "stage", l.stage)
		}
	})
}

// With runs fn while holding the model slot for stage. The lease is
// released on every exit path, including when fn returns an error or
// panics.
func (a *Arbiter) With(ctx context.Context, stage string, reclaim func(), fn func(ctx context.Context) error) error {
	lease, err := a.Acquire(ctx, stage, reclaim)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(ctx)
}

// Resident reports the stage currently holding the slot, or "" if free.
func (a *Arbiter) Resident() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resident
}
