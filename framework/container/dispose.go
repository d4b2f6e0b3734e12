package container

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DisposeFunc is the normalized form of a recognized disposal hook.
type DisposeFunc func(ctx context.Context) error

// Recognized teardown shapes, most specific first. A singleton (or scoped
// instance) exposing one of these is disposed exactly once when its store is
// torn down.
type (
	contextErrDisposer interface{ Dispose(ctx context.Context) error }
	contextDisposer    interface{ Dispose(ctx context.Context) }
	errDisposer        interface{ Dispose() error }
	disposer           interface{ Dispose() }
)

// disposalHookOf adapts v's teardown method, if any, to a DisposeFunc.
// io.Closer is accepted last so resources following the stdlib convention
// participate without extra glue.
func disposalHookOf(v any) DisposeFunc {
	switch d := v.(type) {
	case contextErrDisposer:
		return d.Dispose
	case contextDisposer:
		return func(ctx context.Context) error { d.Dispose(ctx); return nil }
	case errDisposer:
		return func(context.Context) error { return d.Dispose() }
	case disposer:
		return func(context.Context) error { d.Dispose(); return nil }
	case io.Closer:
		return func(context.Context) error { return d.Close() }
	}
	return nil
}

// disposalRegistry collects the singleton instances that need teardown at
// process shutdown. Append-only until drained; draining is destructive so
// DisposeAll is idempotent.
type disposalRegistry struct {
	mu      sync.Mutex
	entries []disposalEntry
}

type disposalEntry struct {
	key  reflect.Type
	hook DisposeFunc
}

func newDisposalRegistry() *disposalRegistry {
	return &disposalRegistry{}
}

func (d *disposalRegistry) add(key reflect.Type, hook DisposeFunc) {
	d.mu.Lock()
	d.entries = append(d.entries, disposalEntry{key, hook})
	d.mu.Unlock()
}

func (d *disposalRegistry) drain() []disposalEntry {
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()
	return entries
}

// DisposeAll tears down every registered singleton. The host pipeline must
// call it exactly once during an orderly shutdown; extra calls find an empty
// registry and do nothing.
//
// Hooks run concurrently, each in its own goroutine, so one hanging resource
// cannot block the cleanup attempt of the others. Failures and panics are
// logged and swallowed — disposal never propagates errors.
func (c *Container) DisposeAll(ctx context.Context) {
	c.disposals.dispose(ctx, c.log)
}

func (d *disposalRegistry) dispose(ctx context.Context, log *zap.Logger) {
	entries := d.drain()
	if len(entries) == 0 {
		return
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	for _, e := range entries {
		g.Go(func() error {
			err := runDisposal(ctx, e)
			if err != nil {
				log.Error("container: disposal failed",
					zap.Stringer("protocol", e.key),
					zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil // isolation: never fail the group
		})
	}
	_ = g.Wait()

	if errs != nil {
		log.Warn("container: shutdown completed with disposal failures", zap.Error(errs))
	}
}

func runDisposal(ctx context.Context, e disposalEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("disposal of %s panicked: %v", e.key, r)
		}
	}()
	return e.hook(ctx)
}
