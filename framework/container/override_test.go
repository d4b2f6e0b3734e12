package container_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/fastioc/framework/container"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type mockClock struct{ fixedClock }

type mockGreeter struct{}

func (mockGreeter) Greet(name string) string { return "mock " + name }

func newPrimary(t *testing.T) *container.Container {
	t.Helper()
	c := container.New()
	require.NoError(t, container.AddSingleton[IClock](c, newFixedClock))
	require.NoError(t, container.AddScoped[IGreeter](c, func(cl IClock) IGreeter { return &greeter{clock: cl} }))
	require.NoError(t, container.AddTransient[IStamp](c, newStamp))
	return c
}

// ── Effective lifetimes ──────────────────────────────────────────────────────

func TestOverride_LifetimeMatrix(t *testing.T) {
	tests := []struct {
		name    string
		primary container.Lifetime
		mock    container.Lifetime
		want    container.Lifetime
	}{
		{"singleton replaced by singleton stays singleton", container.Singleton, container.Singleton, container.Singleton},
		{"singleton replaced by scoped downgrades to scoped", container.Singleton, container.Scoped, container.Scoped},
		{"singleton replaced by transient downgrades to scoped", container.Singleton, container.Transient, container.Scoped},
		{"scoped replaced by singleton upgrades to singleton", container.Scoped, container.Singleton, container.Singleton},
		{"scoped replaced by scoped stays scoped", container.Scoped, container.Scoped, container.Scoped},
		{"scoped replaced by transient stays scoped", container.Scoped, container.Transient, container.Scoped},
		{"transient replaced by singleton upgrades to singleton", container.Transient, container.Singleton, container.Singleton},
		{"transient replaced by scoped stays transient", container.Transient, container.Scoped, container.Transient},
		{"transient replaced by transient stays transient", container.Transient, container.Transient, container.Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := container.New()
			require.NoError(t, primary.Register(container.Key[IClock](), newFixedClock, tt.primary))

			mock := container.New()
			require.NoError(t, mock.Register(container.Key[IClock](), func() IClock { return &mockClock{} }, tt.mock))

			o, err := primary.Override(nil, mock)
			require.NoError(t, err)
			require.Equal(t, tt.want, o.Lifetimes()[container.Key[IClock]()])
		})
	}
}

func TestOverride_MockOnlyProtocolsIgnored(t *testing.T) {
	primary := newPrimary(t)

	mock := container.New()
	require.NoError(t, container.AddSingleton[IStream](mock, func() IStream { return &stream{} }))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)
	require.Zero(t, o.Len(), "protocols the primary never registered are not container concerns")
}

func TestOverride_ExplicitEntryKeepsPrimaryLifetime(t *testing.T) {
	primary := newPrimary(t)

	o, err := primary.Override(map[reflect.Type]any{
		container.Key[IGreeter](): func() IGreeter { return mockGreeter{} },
	}, nil)
	require.NoError(t, err)
	require.Equal(t, container.Scoped, o.Lifetimes()[container.Key[IGreeter]()])
}

func TestOverride_ExplicitUnregisteredKeyPassesThroughTransient(t *testing.T) {
	primary := newPrimary(t)

	o, err := primary.Override(map[reflect.Type]any{
		container.Key[IStream](): func() IStream { return &stream{} },
	}, nil)
	require.NoError(t, err)
	require.Equal(t, container.Transient, o.Lifetimes()[container.Key[IStream]()])
}

// ── Resolution under overrides ───────────────────────────────────────────────

func TestOverride_SubstitutesDuringResolution(t *testing.T) {
	primary := newPrimary(t)

	mock := container.New()
	require.NoError(t, container.AddScoped[IGreeter](mock, func() IGreeter { return mockGreeter{} }))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	scope := primary.NewScope()
	defer scope.Close(context.Background())

	got := container.MustResolve[IGreeter](primary, &container.Resolution{Scope: scope, Overrides: o})
	require.Equal(t, "mock bob", got.Greet("bob"))

	// without the overrides the primary implementation still answers
	plain := container.MustResolve[IGreeter](primary, &container.Resolution{Scope: scope})
	require.Contains(t, plain.Greet("bob"), "hello bob")
}

func TestOverride_DowngradedSingletonIsScopedPerRequest(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddSingleton[IClock](primary, newFixedClock))

	mock := container.New()
	require.NoError(t, container.AddTransient[IClock](mock, func() IClock { return &mockClock{} }))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	s1 := primary.NewScope()
	defer s1.Close(context.Background())
	a := container.MustResolve[IClock](primary, &container.Resolution{Scope: s1, Overrides: o})
	b := container.MustResolve[IClock](primary, &container.Resolution{Scope: s1, Overrides: o})
	require.Same(t, a, b, "reused within one request")

	s2 := primary.NewScope()
	defer s2.Close(context.Background())
	other := container.MustResolve[IClock](primary, &container.Resolution{Scope: s2, Overrides: o})
	require.NotSame(t, a, other, "never frozen across requests")
}

func TestOverride_UpgradedSingletonLivesInOverrideStore(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddTransient[IStamp](primary, newStamp))

	mock := container.New()
	require.NoError(t, container.AddSingleton[IStamp](mock, newStamp))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	a := container.MustResolve[IStamp](primary, &container.Resolution{Overrides: o})
	b := container.MustResolve[IStamp](primary, &container.Resolution{Overrides: o})
	require.Same(t, a, b, "override singleton shared across resolutions")

	// the primary container keeps its transient behavior
	x := container.MustResolve[IStamp](primary, nil)
	y := container.MustResolve[IStamp](primary, nil)
	require.NotSame(t, x, y)
	require.NotSame(t, a, x)
}

func TestOverride_PrebuiltInstanceMockResolvesVerbatim(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddSingleton[IClock](primary, newFixedClock))

	mock := container.New()
	canned := &mockClock{}
	require.NoError(t, container.AddInstance[IClock](mock, canned))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	got := container.MustResolve[IClock](primary, &container.Resolution{Overrides: o})
	require.Same(t, canned, got, "the pre-built mock itself, not a fresh allocation")
}

func TestOverride_PrebuiltValueMockAccepted(t *testing.T) {
	primary := newPrimary(t)

	// a plain struct value: not a constructor and not a *Struct prototype
	mock := container.New()
	require.NoError(t, container.AddInstance[IGreeter](mock, mockGreeter{}))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	got := container.MustResolve[IGreeter](primary, &container.Resolution{Overrides: o})
	require.Equal(t, "mock bob", got.Greet("bob"))
}

func TestOverride_ExplicitPrebuiltValueIsUsedVerbatim(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddSingleton[IClock](primary, newFixedClock))

	canned := &mockClock{}
	o, err := primary.Override(map[reflect.Type]any{
		container.Key[IClock](): canned,
	}, nil)
	require.NoError(t, err)

	got := container.MustResolve[IClock](primary, &container.Resolution{Overrides: o})
	require.Same(t, canned, got)
}

func TestOverride_PrebuiltInstanceDisposalIsOverrideLocal(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddTransient[*plainDisposer](primary, func() *plainDisposer { return &plainDisposer{} }))

	mock := container.New()
	d := &plainDisposer{}
	require.NoError(t, container.AddInstance[*plainDisposer](mock, d))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	got := container.MustResolve[*plainDisposer](primary, &container.Resolution{Overrides: o})
	require.Same(t, d, got)

	o.Dispose(context.Background())
	require.Equal(t, int32(1), d.calls.Load())

	primary.DisposeAll(context.Background())
	require.Equal(t, int32(1), d.calls.Load())
}

func TestOverride_RejectsGeneratorAsSingleton(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddSingleton[IStream](primary, func() IStream { return &stream{} }))

	// the explicit entry adopts the primary's Singleton lifetime, and a
	// cleanup-returning substitute cannot live that long
	_, err := primary.Override(map[reflect.Type]any{
		container.Key[IStream](): func() (IStream, func()) { return &stream{}, func() {} },
	}, nil)

	var generr *container.SingletonGeneratorError
	require.ErrorAs(t, err, &generr)
}

func TestOverride_DisposeTearsDownOverrideSingletons(t *testing.T) {
	primary := container.New()
	require.NoError(t, container.AddTransient[*plainDisposer](primary, func() *plainDisposer { return &plainDisposer{} }))

	mock := container.New()
	d := &plainDisposer{}
	require.NoError(t, container.AddSingleton[*plainDisposer](mock, func() *plainDisposer { return d }))

	o, err := primary.Override(nil, mock)
	require.NoError(t, err)

	got := container.MustResolve[*plainDisposer](primary, &container.Resolution{Overrides: o})
	require.Same(t, d, got)

	o.Dispose(context.Background())
	require.Equal(t, int32(1), d.calls.Load())

	// primary disposal registry was never involved
	primary.DisposeAll(context.Background())
	require.Equal(t, int32(1), d.calls.Load())
}
