package container

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Scope is a request-lifetime instance store. The routing layer opens one per
// request and closes it when the response is written; within the scope each
// binding resolves to exactly one instance. Scopes are never shared between
// requests, so the lock only guards the intra-request first-resolution race.
type Scope struct {
	mu        sync.Mutex
	instances map[reflect.Type]any
	cleanups  []scopeCleanup
	closed    bool
	log       *zap.Logger
}

type scopeCleanup struct {
	key  reflect.Type
	hook DisposeFunc
}

// NewScope opens a fresh request scope.
func (c *Container) NewScope() *Scope {
	return &Scope{instances: make(map[reflect.Type]any), log: c.log}
}

type scopeCtxKey struct{}

// WithScope attaches a scope to ctx for downstream resolution.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, s)
}

// ScopeFrom returns the scope attached to ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeCtxKey{}).(*Scope)
	return s
}

// getOrCreate returns the scope-local instance for key, building it if this
// is the first resolution within the scope. The build runs outside the lock
// so nested scoped dependencies can resolve re-entrantly; if two builds race
// inside one scope the first stored instance wins and the loser is torn down
// immediately.
func (s *Scope) getOrCreate(key reflect.Type, build func() (any, func(), error)) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: resolving %s", ErrScopeClosed, key)
	}
	if v, ok := s.instances[key]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, cleanup, err := build()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.instances[key]; ok {
		s.mu.Unlock()
		if cleanup != nil {
			cleanup()
		}
		return existing, nil
	}
	s.instances[key] = v
	if cleanup != nil {
		s.cleanups = append(s.cleanups, scopeCleanup{key, func(context.Context) error { cleanup(); return nil }})
	}
	if hook := disposalHookOf(v); hook != nil {
		s.cleanups = append(s.cleanups, scopeCleanup{key, hook})
	}
	s.mu.Unlock()
	return v, nil
}

// addCleanup registers a teardown hook to run when the scope closes.
func (s *Scope) addCleanup(key reflect.Type, hook DisposeFunc) {
	s.mu.Lock()
	if !s.closed {
		s.cleanups = append(s.cleanups, scopeCleanup{key, hook})
	}
	s.mu.Unlock()
}

// Close tears the scope down: cleanups run in reverse registration order,
// each isolated — a failing or panicking hook is logged and never blocks the
// rest. Closing twice is a no-op.
func (s *Scope) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cleanups := s.cleanups
	s.cleanups = nil
	s.instances = nil
	s.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		s.runCleanup(ctx, cleanups[i])
	}
}

func (s *Scope) runCleanup(ctx context.Context, cu scopeCleanup) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("container: scope cleanup panicked",
				zap.Stringer("protocol", cu.key),
				zap.Any("panic", r))
		}
	}()
	if err := cu.hook(ctx); err != nil {
		s.log.Error("container: scope cleanup failed",
			zap.Stringer("protocol", cu.key),
			zap.Error(err))
	}
}
