// Package container provides a type-driven IoC (Inversion of Control)
// container with lifetime management for HTTP applications.
//
// # Overview
//
// Bindings map a protocol type — usually an interface — to an implementation
// and a lifetime, ASP.NET style:
//
//	c := container.New(container.WithLogger(log))
//
//	// Singleton — one shared instance for the whole process
//	container.AddSingleton[IClock](c, NewSystemClock)
//
//	// Scoped — one instance per HTTP request
//	container.AddScoped[IGreeter](c, NewGreeter)
//
//	// Transient — a new instance on every resolution
//	container.AddTransient[IStamp](c, NewStamp)
//
//	// Pre-built value
//	container.AddInstance[*config.Config](c, cfg)
//
// Implementations are constructor funcs or *Struct prototypes. Constructor
// parameters and exported struct fields are the dependency declarations; the
// container classifies each one as container-managed, framework-native
// (request, response writer, context, parameter carriers) or passthrough,
// and resolves the managed ones transitively.
//
// # Fail-fast registration
//
// Each Add* call builds and validates the binding's whole resolution plan:
//
//   - a singleton depending on a scoped or transient binding fails with
//     SingletonLifetimeViolationError;
//   - a single-use constructor (one returning a cleanup func, a channel or
//     an iterator) bound as singleton fails with SingletonGeneratorError;
//   - a dangling `inject:"name"` tag fails with ForwardRefResolutionError.
//
// Nothing is re-inspected per request: plans compile into Provider closures
// the routing layer invokes like any of its own handlers.
//
// # Scopes and disposal
//
// The routing layer opens a Scope per request and closes it at request end;
// scoped instances and constructor cleanups are torn down with it. Singleton
// instances exposing Dispose (with optional context and error) or io.Closer
// are disposed exactly once by DisposeAll during shutdown, each hook
// isolated from the others.
//
// # Test overrides
//
// Override derives a substitution table from explicit replacements and/or a
// mock container, adjusting lifetimes so mocks are reused sensibly without
// being frozen process-wide; install it with the router's UseOverrides.
package container
