package container

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// ── Hooks ────────────────────────────────────────────────────────────────────

// RegisterHook runs before a binding is stored. It may adjust the binding or
// veto the registration by returning an error.
type RegisterHook func(Binding) (Binding, error)

// ResolveHook runs when a provider is about to execute. It may wrap or
// replace the provider, or veto the resolution by returning an error.
type ResolveHook func(protocol reflect.Type, p Provider) (Provider, error)

// ── Container ────────────────────────────────────────────────────────────────

// Container is the IoC container: protocol → implementation bindings with
// lifetimes, resolved into precompiled per-request providers.
//
// All registration happens at startup, before traffic; the dependency graph
// of every binding is built and validated eagerly at the Add* call, so a
// misconfigured graph fails the boot instead of a request.
type Container struct {
	// registration-time state; effectively read-only once traffic starts
	regs    map[reflect.Type]*registration
	aliases map[string]reflect.Type

	// runtime state
	store     *processStore
	disposals *disposalRegistry

	log            *zap.Logger
	beforeRegister RegisterHook
	beforeResolve  ResolveHook
}

// registration is a stored binding together with everything derived from it
// at registration time: the compiled implementation, the validated resolution
// plan and the executable provider.
type registration struct {
	binding Binding
	impl    *implementation
	keyID   string

	node       *ResolutionNode
	paramNodes []*ResolutionNode
	fieldNodes []*ResolutionNode
	provider   Provider

	// where singletons built from this registration live; the container's
	// own store, or an override-local one for substituted bindings
	store     *processStore
	disposals *disposalRegistry
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for registration and disposal signals.
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBeforeRegister installs the registration interception strategy.
func WithBeforeRegister(h RegisterHook) Option {
	return func(c *Container) { c.beforeRegister = h }
}

// WithBeforeResolve installs the resolution interception strategy.
func WithBeforeResolve(h ResolveHook) Option {
	return func(c *Container) { c.beforeResolve = h }
}

// SetLogger replaces the container's logger. Startup-only, like
// registration: the kernel calls it once the logging binding has booted, so
// the container created before configuration was loaded still logs properly.
func (c *Container) SetLogger(log *zap.Logger) {
	if log != nil {
		c.log = log
	}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		regs:      make(map[reflect.Type]*registration),
		aliases:   make(map[string]reflect.Type),
		store:     newProcessStore(),
		disposals: newDisposalRegistry(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Registration ─────────────────────────────────────────────────────────────

// Register stores a binding and eagerly builds its resolution plan.
//
// implementation is a constructor func (see Binding docs for accepted
// shapes) or a *Struct prototype. Registration fails fast on a single-use
// implementation bound as Singleton, on a singleton depending on a narrower
// lifetime anywhere in its graph, and on a dangling `inject:"name"` tag.
//
// Registering the same protocol twice replaces the earlier binding; plans
// already baked into other bindings keep the implementation they were built
// against.
func (c *Container) Register(protocol reflect.Type, implementation any, lifetime Lifetime) error {
	if protocol == nil {
		return fmt.Errorf("container: nil protocol")
	}

	b := Binding{Protocol: protocol, Implementation: implementation, Lifetime: lifetime}
	if c.beforeRegister != nil {
		hooked, err := c.beforeRegister(b)
		if err != nil {
			return fmt.Errorf("container: before-register hook rejected %s: %w", protocol, err)
		}
		b = hooked
	}

	impl, err := compileImplementation(b.Protocol, b.Implementation)
	if err != nil {
		return err
	}
	if b.Lifetime == Singleton && impl.generatorLike() {
		return &SingletonGeneratorError{Protocol: b.Protocol}
	}
	if protocolShadowsHost(b.Protocol) {
		c.log.Warn("container: protocol has a native meaning to the host framework; binding it may shadow request parsing",
			zap.Stringer("protocol", b.Protocol))
	}

	reg := &registration{
		binding:   b,
		impl:      impl,
		keyID:     keyID(b.Protocol),
		store:     c.store,
		disposals: c.disposals,
	}
	node, err := c.buildGraph(reg)
	if err != nil {
		return err
	}
	reg.node = node
	reg.paramNodes, reg.fieldNodes = splitNodes(node)
	reg.provider = c.compileProvider(reg)

	if _, exists := c.regs[b.Protocol]; exists {
		c.log.Debug("container: protocol re-registered, previous binding replaced",
			zap.Stringer("protocol", b.Protocol))
		c.store.forget(b.Protocol)
	}
	c.regs[b.Protocol] = reg
	return nil
}

// registerInstance stores a pre-built value under protocol. The value itself
// is the singleton; its disposal hook, if any, is recognized immediately.
func (c *Container) registerInstance(protocol reflect.Type, instance any) error {
	b := Binding{Protocol: protocol, Implementation: instance, Lifetime: Singleton}
	if c.beforeRegister != nil {
		hooked, err := c.beforeRegister(b)
		if err != nil {
			return fmt.Errorf("container: before-register hook rejected %s: %w", protocol, err)
		}
		b = hooked
	}
	reg := &registration{
		binding:   b,
		impl:      instanceImplementation(b.Implementation),
		keyID:     keyID(protocol),
		store:     c.store,
		disposals: c.disposals,
	}
	reg.node = &ResolutionNode{Key: protocol, Classification: Managed, Lifetime: Singleton}
	reg.provider = c.compileProvider(reg)

	if _, exists := c.regs[protocol]; exists {
		c.log.Debug("container: protocol re-registered, previous binding replaced",
			zap.Stringer("protocol", protocol))
		c.store.forget(protocol)
	}
	c.regs[protocol] = reg
	if hook := disposalHookOf(b.Implementation); hook != nil {
		c.disposals.add(protocol, hook)
	}
	return nil
}

// AddSingleton registers implementation under P with the Singleton lifetime.
//
//	container.AddSingleton[IClock](c, NewSystemClock)
func AddSingleton[P any](c *Container, implementation any) error {
	return c.Register(Key[P](), implementation, Singleton)
}

// AddScoped registers implementation under P with the Scoped lifetime.
func AddScoped[P any](c *Container, implementation any) error {
	return c.Register(Key[P](), implementation, Scoped)
}

// AddTransient registers implementation under P with the Transient lifetime.
func AddTransient[P any](c *Container, implementation any) error {
	return c.Register(Key[P](), implementation, Transient)
}

// AddInstance registers a pre-built value under P as a singleton.
//
//	container.AddInstance[*config.Config](c, cfg)
func AddInstance[P any](c *Container, instance P) error {
	return c.registerInstance(Key[P](), instance)
}

// Alias names a protocol so `inject:"name"` tags can reference it.
//
//	c.Alias("clock", container.Key[IClock]())
func (c *Container) Alias(name string, protocol reflect.Type) {
	if _, exists := c.aliases[name]; exists {
		c.log.Debug("container: alias re-registered", zap.String("alias", name))
	}
	c.aliases[name] = protocol
}

// ── Lookup & resolution ──────────────────────────────────────────────────────

// Bound reports whether protocol has a binding.
func (c *Container) Bound(protocol reflect.Type) bool {
	_, ok := c.regs[protocol]
	return ok
}

// Lifetime returns the registered lifetime of protocol.
func (c *Container) Lifetime(protocol reflect.Type) (Lifetime, bool) {
	reg, ok := c.regs[protocol]
	if !ok {
		return 0, false
	}
	return reg.binding.Lifetime, true
}

// Bindings returns all registered protocol keys (for debugging).
func (c *Container) Bindings() []reflect.Type {
	out := make([]reflect.Type, 0, len(c.regs))
	for t := range c.regs {
		out = append(out, t)
	}
	return out
}

// ProviderFor returns the executable provider for protocol — the callable
// the host pipeline plugs into its own dependency mechanism.
func (c *Container) ProviderFor(protocol reflect.Type) (Provider, error) {
	reg, ok := c.regs[protocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, protocol)
	}
	return func(res *Resolution) (any, error) {
		return c.invokeProvider(protocol, reg, res)
	}, nil
}

// Plan returns the validated resolution tree for protocol. The tree is
// immutable; callers must not modify it.
func (c *Container) Plan(protocol reflect.Type) (*ResolutionNode, bool) {
	reg, ok := c.regs[protocol]
	if !ok {
		return nil, false
	}
	return reg.node, true
}

// Resolve resolves P through the container.
//
//	greeter, err := container.Resolve[IGreeter](c, res)
func Resolve[P any](c *Container, res *Resolution) (P, error) {
	var zero P
	key := Key[P]()
	reg, ok := c.regs[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	v, err := c.invokeProvider(key, reg, res)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(P)
	if !ok {
		return zero, fmt.Errorf("container: %s resolved to %T, not %s", key, v, key)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure. Intended for boot-time
// wiring where a missing binding is a programming error.
func MustResolve[P any](c *Container, res *Resolution) P {
	v, err := Resolve[P](c, res)
	if err != nil {
		panic(err)
	}
	return v
}
