package container

import (
	"fmt"
	"reflect"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related bindings behind a two-phase lifecycle.
//
// Register binds protocols into the container; do not resolve anything there.
// Boot runs after ALL providers have registered, so it may resolve freely.
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return container.AddSingleton[IMailer](app, NewSMTPMailer)
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides returns the protocols this provider registers. Informational
	// for eager providers; required for deferred ones.
	Provides() []reflect.Type

	// IsDeferred marks a provider whose Register runs at Boot time instead
	// of immediately. All registration still completes before any request
	// is served — deferral orders startup work, it does not push
	// registration into the request path.
	IsDeferred() bool
}

// BaseProvider is an embeddable no-op base; override only what you need.
type BaseProvider struct{}

func (BaseProvider) Boot(*Container) error    { return nil }
func (BaseProvider) Provides() []reflect.Type { return nil }
func (BaseProvider) IsDeferred() bool         { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders.
type ProviderRegistry struct {
	app        *Container
	eager      []ServiceProvider
	deferred   []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider. Eager providers register immediately; deferred
// ones are queued until Boot. Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() && !r.booted {
		r.deferred = append(r.deferred, provider)
		return nil
	}

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("provider %T: register: %w", provider, err)
	}
	r.eager = append(r.eager, provider)

	if r.booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("provider %T: boot: %w", provider, err)
		}
	}
	return nil
}

// Boot registers the deferred providers, then boots everything. Must be
// called after all providers have been added and before serving traffic.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true

	for _, provider := range r.deferred {
		if err := provider.Register(r.app); err != nil {
			return fmt.Errorf("provider %T: register: %w", provider, err)
		}
		r.eager = append(r.eager, provider)
	}
	r.deferred = nil

	for _, provider := range r.eager {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("provider %T: boot: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true once Boot has run.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all providers registered so far, in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	out := make([]ServiceProvider, 0, len(r.eager)+len(r.deferred))
	out = append(out, r.eager...)
	out = append(out, r.deferred...)
	return out
}
