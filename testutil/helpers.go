package testutil

import (
	"context"
	"testing"
)

// CleanupFunc stops a component started by Setup.
type CleanupFunc func() error

// Setup starts a test component and returns a cleanup function.
func Setup(ctx context.Context, c TestComponent) (CleanupFunc, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return func() error { return c.Stop(ctx) }, nil
}

// THelper ties component lifecycle to a testing.TB.
type THelper struct {
	tb  testing.TB
	ctx context.Context
}

// T wraps a testing.TB.
func T(tb testing.TB) *THelper {
	return &THelper{tb: tb, ctx: context.Background()}
}

// WithContext sets the context passed to component methods.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c and stops it when the test ends.
func (h *THelper) Setup(c TestComponent) {
	h.tb.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.tb.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	h.tb.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.tb.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Reset resets c to its initial state.
func (h *THelper) Reset(c TestComponent) {
	h.tb.Helper()
	if err := c.Reset(h.ctx); err != nil {
		h.tb.Fatalf("failed to reset component %s: %v", c.Name(), err)
	}
}

// Snapshot captures the current state of c.
func (h *THelper) Snapshot(c TestComponent) interface{} {
	h.tb.Helper()
	snapshot, err := c.Snapshot(h.ctx)
	if err != nil {
		h.tb.Fatalf("failed to snapshot component %s: %v", c.Name(), err)
	}
	return snapshot
}

// Restore returns c to a previously captured state.
func (h *THelper) Restore(c TestComponent, snapshot interface{}) {
	h.tb.Helper()
	if err := c.Restore(h.ctx, snapshot); err != nil {
		h.tb.Fatalf("failed to restore component %s: %v", c.Name(), err)
	}
}
