package testutil

import (
	"context"

	"github.com/kbukum/speakerid/component"
)

// TestComponent extends component.Component with test-only lifecycle methods.
type TestComponent interface {
	component.Component

	// Reset restores the component to its initial state between test cases.
	Reset(ctx context.Context) error

	// Snapshot captures the current state for a later Restore.
	Snapshot(ctx context.Context) (interface{}, error)

	// Restore returns the component to a state captured by Snapshot.
	Restore(ctx context.Context, snapshot interface{}) error
}
