package container

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNotRegistered is returned when a provider is requested for a protocol
// that has no binding. During graph building an unregistered dependency is
// NOT an error — it is classified as passthrough and left to the host.
var ErrNotRegistered = errors.New("container: protocol is not registered")

// ErrScopeClosed is returned when resolving a scoped binding against a scope
// that has already been closed.
var ErrScopeClosed = errors.New("container: request scope is already closed")

// ErrNoScope is returned when a scoped binding is resolved outside of any
// request scope.
var ErrNoScope = errors.New("container: no active request scope")

// ForwardRefResolutionError reports an `inject:"name"` tag whose name does
// not match any registered alias. Raised at registration time so a broken
// reference never turns into a request-time failure.
type ForwardRefResolutionError struct {
	Name  string       // the unresolved alias name
	Field string       // the struct field carrying the tag
	On    reflect.Type // the type declaring the field
}

func (e *ForwardRefResolutionError) Error() string {
	return fmt.Sprintf("container: cannot resolve reference %q on %s.%s: no such alias",
		e.Name, e.On, e.Field)
}

// SingletonGeneratorError reports an attempt to register a single-use
// implementation (a constructor returning a cleanup function, a channel or an
// iterator) with the Singleton lifetime. Such values cannot be safely reused
// for the process lifetime.
type SingletonGeneratorError struct {
	Protocol reflect.Type
}

func (e *SingletonGeneratorError) Error() string {
	return fmt.Sprintf("container: cannot register %s as singleton: implementation is single-use (generator-like)",
		e.Protocol)
}

// SingletonLifetimeViolationError reports a singleton binding that depends,
// directly or transitively, on a scoped or transient binding. A singleton is
// built once for the process; a narrower dependency would be frozen forever.
type SingletonLifetimeViolationError struct {
	Singleton          reflect.Type
	Dependency         reflect.Type
	DependencyLifetime Lifetime
}

func (e *SingletonLifetimeViolationError) Error() string {
	return fmt.Sprintf("container: singleton %s depends on %s %s: singletons may only depend on singletons",
		e.Singleton, e.DependencyLifetime, e.Dependency)
}
