package container_test

import (
	"testing"

	"github.com/km-arc/fastioc/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type ISvc interface {
	Name() string
}

type svc struct{ name string }

func (s *svc) Name() string { return s.name }

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *eagerProvider) Register(app *container.Container) error {
	p.registerCalled = true
	return container.AddSingleton[ISvc](app, func() ISvc { return &svc{name: "eager"} })
}

func (p *eagerProvider) Boot(app *container.Container) error {
	p.bootCalled = true
	return nil
}

// deferredProvider registers during Boot, after every eager provider.
type deferredProvider struct {
	container.BaseProvider
	registerCalled bool
}

func (p *deferredProvider) Register(app *container.Container) error {
	p.registerCalled = true
	return container.AddSingleton[*svc](app, func() *svc { return &svc{name: "deferred"} })
}

func (p *deferredProvider) IsDeferred() bool { return true }

type failingProvider struct {
	container.BaseProvider
}

func (p *failingProvider) Register(app *container.Container) error {
	return container.AddSingleton[ISvc](app, "not a constructor")
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisterCalledImmediately(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	if err := reg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !p.registerCalled {
		t.Error("Register() should be called immediately for eager providers")
	}
}

func TestRegistry_EagerProvider_BootCalledAfterBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	_ = reg.Register(p)

	if p.bootCalled {
		t.Error("Boot() should NOT be called before registry.Boot()")
	}

	if err := reg.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if !p.bootCalled {
		t.Error("Boot() should be called after registry.Boot()")
	}
}

func TestRegistry_EagerProvider_ServiceResolvable(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	_ = reg.Register(&eagerProvider{})
	_ = reg.Boot()

	got := container.MustResolve[ISvc](c, nil)
	if got.Name() != "eager" {
		t.Errorf("ISvc: got %q, want 'eager'", got.Name())
	}
}

func TestRegistry_Boot_Idempotent(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	_ = reg.Register(&eagerProvider{})
	_ = reg.Boot()
	_ = reg.Boot() // second call is a no-op

	if !reg.Booted() {
		t.Error("Booted() should be true after Boot()")
	}
}

func TestRegistry_Booted_FalseBeforeBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	if reg.Booted() {
		t.Error("Booted() should be false before Boot()")
	}
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	_ = reg.Register(p)
	_ = reg.Register(p)

	if len(reg.Providers()) != 1 {
		t.Errorf("Providers(): got %d, want 1", len(reg.Providers()))
	}
}

func TestRegistry_FailingProvider_SurfacesError(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	if err := reg.Register(&failingProvider{}); err == nil {
		t.Error("expected a registration error to surface")
	}
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_RegistersAtBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &deferredProvider{}
	_ = reg.Register(p)

	if p.registerCalled {
		t.Error("deferred provider Register() should wait for Boot()")
	}

	if err := reg.Boot(); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if !p.registerCalled {
		t.Error("deferred provider Register() should run during Boot()")
	}
	got := container.MustResolve[*svc](c, nil)
	if got.Name() != "deferred" {
		t.Errorf("*svc: got %q, want 'deferred'", got.Name())
	}
}

// ── Register after Boot ───────────────────────────────────────────────────────

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	_ = reg.Boot()

	p := &eagerProvider{}
	_ = reg.Register(p)

	if !p.bootCalled {
		t.Error("provider registered after Boot() should be booted immediately")
	}
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider
	c := container.New()

	if err := p.Boot(c); err != nil {
		t.Errorf("Boot: %v", err)
	}
	if p.IsDeferred() {
		t.Error("BaseProvider.IsDeferred() should be false")
	}
	if len(p.Provides()) != 0 {
		t.Error("BaseProvider.Provides() should return an empty slice")
	}
}
