package driver

import (
	"context"
	"fmt"
	"sync"
)

// Session is an attached driver that must be released when no longer used.
type Session interface {
	Driver
	Close() error
}

// Opener attaches a new session to the target application.
type Opener func(ctx context.Context) (Session, error)

// Lease holds at most one live session. Acquiring a new session always
// releases the previous one first, so two sessions never drive the target
// at the same time.
type Lease struct {
	open Opener

	mu      sync.Mutex
	current Session
}

// NewLease returns a Lease that attaches sessions with open.
func NewLease(open Opener) *Lease {
	return &Lease{open: open}
}

// Acquire returns the live session, attaching one if none is held.
func (l *Lease) Acquire(ctx context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		return l.current, nil
	}
	return l.attachLocked(ctx)
}

// Renew releases the held session and attaches a fresh one.
func (l *Lease) Renew(ctx context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		_ = l.current.Close()
		l.current = nil
	}
	return l.attachLocked(ctx)
}

func (l *Lease) attachLocked(ctx context.Context) (Session, error) {
	s, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("attaching to target: %w", err)
	}
	l.current = s
	return s, nil
}

// Release closes the held session, if any.
func (l *Lease) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	err := l.current.Close()
	l.current = nil
	return err
}
