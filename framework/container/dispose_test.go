package container_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/fastioc/framework/container"
)

// ── disposal fixtures ────────────────────────────────────────────────────────

type plainDisposer struct{ calls atomic.Int32 }

func (d *plainDisposer) Dispose() { d.calls.Add(1) }

type errDisposer struct{ calls atomic.Int32 }

func (d *errDisposer) Dispose() error {
	d.calls.Add(1)
	return errBoom
}

type ctxDisposer struct {
	calls atomic.Int32
	ctx   atomic.Bool
}

func (d *ctxDisposer) Dispose(ctx context.Context) error {
	d.calls.Add(1)
	d.ctx.Store(ctx != nil)
	return nil
}

type panicDisposer struct{}

func (d *panicDisposer) Dispose() { panic("disposal exploded") }

type closer struct{ calls atomic.Int32 }

func (c *closer) Close() error {
	c.calls.Add(1)
	return nil
}

// ── DisposeAll ───────────────────────────────────────────────────────────────

func TestDisposeAll_RunsEveryRecognizedHook(t *testing.T) {
	c := container.New()
	plain := &plainDisposer{}
	withCtx := &ctxDisposer{}
	closing := &closer{}

	require.NoError(t, container.AddInstance[*plainDisposer](c, plain))
	require.NoError(t, container.AddInstance[*ctxDisposer](c, withCtx))
	require.NoError(t, container.AddInstance[*closer](c, closing))

	c.DisposeAll(context.Background())

	require.Equal(t, int32(1), plain.calls.Load())
	require.Equal(t, int32(1), withCtx.calls.Load())
	require.True(t, withCtx.ctx.Load(), "context-aware hooks receive the shutdown context")
	require.Equal(t, int32(1), closing.calls.Load(), "io.Closer participates without glue")
}

func TestDisposeAll_Idempotent(t *testing.T) {
	c := container.New()
	plain := &plainDisposer{}
	require.NoError(t, container.AddInstance[*plainDisposer](c, plain))

	c.DisposeAll(context.Background())
	c.DisposeAll(context.Background())
	require.Equal(t, int32(1), plain.calls.Load(), "each hook runs exactly once")
}

func TestDisposeAll_FailingHookDoesNotBlockOthers(t *testing.T) {
	c := container.New()
	first := &plainDisposer{}
	failing := &errDisposer{}
	last := &closer{}

	require.NoError(t, container.AddInstance[*plainDisposer](c, first))
	require.NoError(t, container.AddInstance[*errDisposer](c, failing))
	require.NoError(t, container.AddInstance[*closer](c, last))

	c.DisposeAll(context.Background()) // never propagates errors

	require.Equal(t, int32(1), first.calls.Load())
	require.Equal(t, int32(1), failing.calls.Load())
	require.Equal(t, int32(1), last.calls.Load())
}

func TestDisposeAll_PanickingHookIsRecovered(t *testing.T) {
	c := container.New()
	survivor := &plainDisposer{}
	require.NoError(t, container.AddInstance[*panicDisposer](c, &panicDisposer{}))
	require.NoError(t, container.AddInstance[*plainDisposer](c, survivor))

	require.NotPanics(t, func() { c.DisposeAll(context.Background()) })
	require.Equal(t, int32(1), survivor.calls.Load())
}

func TestDisposeAll_SingletonBuiltLazily(t *testing.T) {
	c := container.New()
	built := &plainDisposer{}
	require.NoError(t, container.AddSingleton[*plainDisposer](c, func() *plainDisposer { return built }))

	// never resolved: nothing to dispose
	c.DisposeAll(context.Background())
	require.Zero(t, built.calls.Load())

	// resolve, then dispose
	require.NoError(t, container.AddSingleton[*plainDisposer](c, func() *plainDisposer { return built }))
	_ = container.MustResolve[*plainDisposer](c, nil)
	c.DisposeAll(context.Background())
	require.Equal(t, int32(1), built.calls.Load())
}

func TestDisposeAll_ResolvedInstanceDisposedOnce(t *testing.T) {
	c := container.New()
	d := &plainDisposer{}
	require.NoError(t, container.AddInstance[*plainDisposer](c, d))

	// resolving must not register the hook a second time
	_ = container.MustResolve[*plainDisposer](c, nil)
	_ = container.MustResolve[*plainDisposer](c, nil)

	c.DisposeAll(context.Background())
	require.Equal(t, int32(1), d.calls.Load())
}

// ── Scoped disposal ──────────────────────────────────────────────────────────

func TestScopedInstance_DisposedWithScope(t *testing.T) {
	c := container.New()
	d := &plainDisposer{}
	require.NoError(t, container.AddScoped[*plainDisposer](c, func() *plainDisposer { return d }))

	scope := c.NewScope()
	_ = container.MustResolve[*plainDisposer](c, &container.Resolution{Scope: scope})

	require.Zero(t, d.calls.Load())
	scope.Close(context.Background())
	require.Equal(t, int32(1), d.calls.Load())

	// process-level disposal never touches scoped instances
	c.DisposeAll(context.Background())
	require.Equal(t, int32(1), d.calls.Load())
}

func TestTransientInstance_DisposedWithScope(t *testing.T) {
	c := container.New()
	var made []*plainDisposer
	require.NoError(t, container.AddTransient[*plainDisposer](c, func() *plainDisposer {
		d := &plainDisposer{}
		made = append(made, d)
		return d
	}))

	scope := c.NewScope()
	res := &container.Resolution{Scope: scope}
	_ = container.MustResolve[*plainDisposer](c, res)
	_ = container.MustResolve[*plainDisposer](c, res)

	scope.Close(context.Background())
	require.Len(t, made, 2)
	for _, d := range made {
		require.Equal(t, int32(1), d.calls.Load())
	}
}
