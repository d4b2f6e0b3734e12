package container

import (
	"fmt"
	"reflect"
)

// Key returns the reflect.Type used as the binding key for P.
//
//	c.Register(container.Key[IGreeter](), NewGreeter, container.Scoped)
func Key[P any]() reflect.Type { return reflect.TypeFor[P]() }

// Binding associates a protocol type with an implementation and a lifetime.
// The protocol is the lookup key; it does not have to be related by
// assignability to the implementation's concrete type, although it usually is.
type Binding struct {
	Protocol       reflect.Type
	Implementation any
	Lifetime       Lifetime
}

// ── Implementation forms ─────────────────────────────────────────────────────

type implKind int

const (
	// implCtor is a constructor function. Accepted shapes:
	//
	//	func(deps...) T
	//	func(deps...) (T, error)
	//	func(deps...) (T, func())
	//	func(deps...) (T, func(), error)
	//
	// The func() return is a cleanup hook, run when the owning scope ends.
	// A cleanup-returning constructor is single-use and cannot be a singleton.
	implCtor implKind = iota

	// implPrototype is a *Struct value used as a template: every resolution
	// allocates a fresh struct and fills its injectable fields.
	implPrototype

	// implInstance is a pre-built value registered with AddInstance.
	implInstance
)

type implementation struct {
	kind     implKind
	produces reflect.Type // the type a resolution yields

	ctor         reflect.Value
	ctorType     reflect.Type
	errIndex     int // index of the error return, -1 when absent
	cleanupIndex int // index of the func() return, -1 when absent

	proto reflect.Type // struct type behind the prototype pointer

	instance reflect.Value
}

var (
	errType    = reflect.TypeFor[error]()
	cleanupTyp = reflect.TypeFor[func()]()
)

// compileImplementation normalizes the user-supplied implementation value
// into one of the three accepted forms.
func compileImplementation(protocol reflect.Type, impl any) (*implementation, error) {
	if impl == nil {
		return nil, fmt.Errorf("container: nil implementation for %s", protocol)
	}

	v := reflect.ValueOf(impl)
	t := v.Type()

	switch t.Kind() {
	case reflect.Func:
		return compileCtor(protocol, v)
	case reflect.Ptr:
		if t.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("container: implementation for %s must be a constructor func or *Struct, got %s", protocol, t)
		}
		return &implementation{kind: implPrototype, produces: t, proto: t.Elem(), errIndex: -1, cleanupIndex: -1}, nil
	default:
		return nil, fmt.Errorf("container: implementation for %s must be a constructor func or *Struct, got %s (use AddInstance for pre-built values)", protocol, t)
	}
}

func compileCtor(protocol reflect.Type, v reflect.Value) (*implementation, error) {
	t := v.Type()
	if t.NumOut() == 0 || t.NumOut() > 3 {
		return nil, fmt.Errorf("container: constructor for %s must return (T), (T, error), (T, func()) or (T, func(), error)", protocol)
	}
	impl := &implementation{
		kind:         implCtor,
		ctor:         v,
		ctorType:     t,
		produces:     t.Out(0),
		errIndex:     -1,
		cleanupIndex: -1,
	}
	for i := 1; i < t.NumOut(); i++ {
		switch out := t.Out(i); {
		case out == errType && impl.errIndex < 0 && i == t.NumOut()-1:
			impl.errIndex = i
		case out == cleanupTyp && impl.cleanupIndex < 0:
			impl.cleanupIndex = i
		default:
			return nil, fmt.Errorf("container: constructor for %s has unsupported return %s at position %d", protocol, out, i)
		}
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("container: variadic constructors are not supported (%s)", protocol)
	}
	return impl, nil
}

// instanceImplementation wraps a pre-built value. Unlike compileImplementation
// it never fails: any value, including a *Struct, is taken as-is.
func instanceImplementation(v any) *implementation {
	return &implementation{
		kind:         implInstance,
		produces:     reflect.TypeOf(v),
		instance:     reflect.ValueOf(v),
		errIndex:     -1,
		cleanupIndex: -1,
	}
}

// generatorLike reports whether the implementation yields a single-use value:
// a cleanup-returning constructor, a channel, or an iterator sequence.
// These cannot be registered with the Singleton lifetime.
func (impl *implementation) generatorLike() bool {
	if impl.cleanupIndex >= 0 {
		return true
	}
	switch p := impl.produces; p.Kind() {
	case reflect.Chan:
		return true
	case reflect.Func:
		// iter.Seq / iter.Seq2 shape: func(yield func(...) bool)
		return p.NumIn() == 1 && p.NumOut() == 0 &&
			p.In(0).Kind() == reflect.Func &&
			p.In(0).NumOut() == 1 && p.In(0).Out(0).Kind() == reflect.Bool
	}
	return false
}
