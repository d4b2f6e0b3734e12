package container

import (
	"context"
	"fmt"
	"reflect"
)

// Overrides is a derived substitution table for testing: protocol → provider.
// It is installed into the routing layer's override point and consulted ahead
// of the primary providers during resolution. Building one mutates neither
// the primary container nor the mock container; singletons created under an
// override live in an override-local store so they can be thrown away with
// the Overrides value itself.
type Overrides struct {
	entries   map[reflect.Type]Provider
	lifetimes map[reflect.Type]Lifetime
	store     *processStore
	disposals *disposalRegistry
	c         *Container
}

// Override merges explicit substitutions and a mock container into a
// substitution table.
//
// The effective lifetime of each mock entry follows the primary registration:
//
//   - primary Scoped/Transient keeps its lifetime, unless the mock registered
//     Singleton — then the result is Singleton;
//   - primary Singleton with a non-Singleton mock downgrades to Scoped, so a
//     mock is never frozen for the whole test process but is still reused
//     within one request;
//   - mock protocols the primary container never registered are ignored.
//
// Explicit entries adopt the primary lifetime when the key is registered;
// unregistered keys pass through, rendered as transient substitutions the
// container executes itself (there is no separate host-side mechanism for
// them). An explicit value that is not a constructor func is taken as a
// pre-built instance, the way AddInstance would take it — a *Struct in the
// explicit map substitutes that exact value, it is not a prototype.
func (c *Container) Override(explicit map[reflect.Type]any, mock *Container) (*Overrides, error) {
	o := &Overrides{
		entries:   make(map[reflect.Type]Provider),
		lifetimes: make(map[reflect.Type]Lifetime),
		store:     newProcessStore(),
		disposals: newDisposalRegistry(),
		c:         c,
	}

	for key, impl := range explicit {
		lifetime := Transient
		if reg, ok := c.regs[key]; ok {
			lifetime = reg.binding.Lifetime
		}
		var compiled *implementation
		if impl != nil && reflect.TypeOf(impl).Kind() != reflect.Func {
			compiled = instanceImplementation(impl)
		} else {
			var err error
			compiled, err = compileImplementation(key, impl)
			if err != nil {
				return nil, fmt.Errorf("container: override for %s: %w", key, err)
			}
		}
		if err := o.add(key, impl, compiled, lifetime); err != nil {
			return nil, err
		}
	}

	if mock != nil {
		for key, mockReg := range mock.regs {
			primary, ok := c.regs[key]
			if !ok {
				continue // mock-only protocols are not container concerns
			}
			lifetime := effectiveLifetime(primary.binding.Lifetime, mockReg.binding.Lifetime)
			// reuse the mock registry's compiled form so an AddInstance
			// registration keeps its pre-built value
			if err := o.add(key, mockReg.binding.Implementation, mockReg.impl, lifetime); err != nil {
				return nil, err
			}
		}
	}

	return o, nil
}

// effectiveLifetime applies the substitution matrix. The asymmetry is
// deliberate: Singleton wins upward, but a replaced Singleton only downgrades
// to Scoped, never Transient.
func effectiveLifetime(primary, mock Lifetime) Lifetime {
	if primary == Singleton {
		if mock != Singleton {
			return Scoped
		}
		return Singleton
	}
	if mock == Singleton {
		return Singleton
	}
	return primary
}

// add builds one substituted binding against the primary container's
// registry (nested dependencies resolve through the primary graph) without
// storing it there. Pre-built instances skip graph building, like
// registerInstance, and their disposal hook goes to the override-local
// registry so Dispose tears them down with the rest of the table.
func (o *Overrides) add(key reflect.Type, impl any, compiled *implementation, lifetime Lifetime) error {
	if lifetime == Singleton && compiled.kind != implInstance && compiled.generatorLike() {
		return &SingletonGeneratorError{Protocol: key}
	}
	reg := &registration{
		binding:   Binding{Protocol: key, Implementation: impl, Lifetime: lifetime},
		impl:      compiled,
		keyID:     keyID(key) + "#override",
		store:     o.store,
		disposals: o.disposals,
	}
	if compiled.kind == implInstance {
		reg.node = &ResolutionNode{Key: key, Classification: Managed, Lifetime: lifetime}
		if hook := disposalHookOf(impl); hook != nil {
			o.disposals.add(key, hook)
		}
	} else {
		node, err := o.c.buildGraph(reg)
		if err != nil {
			return err
		}
		reg.node = node
		reg.paramNodes, reg.fieldNodes = splitNodes(node)
	}
	reg.provider = o.c.compileProvider(reg)

	o.entries[key] = reg.provider
	o.lifetimes[key] = lifetime
	return nil
}

// Provider returns the substituted provider for protocol, if any.
func (o *Overrides) Provider(protocol reflect.Type) (Provider, bool) {
	if o == nil {
		return nil, false
	}
	p, ok := o.entries[protocol]
	return p, ok
}

// Len returns the number of substituted protocols.
func (o *Overrides) Len() int { return len(o.entries) }

// Lifetimes returns the effective lifetime chosen for each substituted
// protocol (for assertions in tests).
func (o *Overrides) Lifetimes() map[reflect.Type]Lifetime { return o.lifetimes }

// Dispose tears down any singletons the overrides created. Safe to call
// multiple times.
func (o *Overrides) Dispose(ctx context.Context) {
	o.disposals.dispose(ctx, o.c.log)
}
