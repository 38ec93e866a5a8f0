// Package driver defines the narrow capability the sync engine uses to read and
// mutate the routine builder it does not control.
//
// Everything structural about the target application lives behind Descriptor
// names. A selector Profile maps those names to concrete lookups, so a layout
// change in the target only requires a new profile.
package driver

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Find when no element matches a descriptor.
var ErrNotFound = errors.New("element not found")

// Element is an opaque handle to a live element of the target interface.
// Handles are only valid for the driver that returned them.
type Element string

// Document is the root scope.
const Document Element = ""

// Driver reads and mutates the target application.
//
// SetValue must go through the target's change-notification path, so that the
// application's own state updates exactly as if a user had typed the value.
// WaitSettle is a best-effort pause for asynchronous updates triggered by the
// last action; it makes no guarantee that they have applied.
type Driver interface {
	Find(ctx context.Context, scope Element, d Descriptor) (Element, error)
	FindAll(ctx context.Context, scope Element, d Descriptor) ([]Element, error)
	Read(ctx context.Context, el Element) (string, error)
	SetValue(ctx context.Context, el Element, value string) error
	Click(ctx context.Context, el Element) error
	WaitSettle(ctx context.Context, d time.Duration) error
}

// Sleep waits for d or until ctx is done. Drivers without a better completion
// signal use it for WaitSettle.
func Sleep(ctx context.Context, d time.Duration) error {
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
