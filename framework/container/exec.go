package container

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"

	gohttp "github.com/km-arc/fastioc/framework/http"
	"go.uber.org/zap"
)

// Provider is the executable form of a binding: the callable the host
// pipeline invokes per request, exactly like any of its own dependency
// primitives. All signature reflection happened at registration; a Provider
// only walks the precompiled plan.
type Provider func(res *Resolution) (any, error)

// Resolution carries the per-request values a plan execution may need. The
// routing layer builds one per request; tests may build one by hand. Every
// field is optional — resolving a pure singleton graph needs none of them.
type Resolution struct {
	Ctx            context.Context
	Scope          *Scope
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	Overrides      *Overrides
}

func (res *Resolution) context() context.Context {
	if res == nil {
		return context.Background()
	}
	if res.Ctx != nil {
		return res.Ctx
	}
	if res.Request != nil {
		return res.Request.Context()
	}
	return context.Background()
}

func (res *Resolution) scope() *Scope {
	if res == nil {
		return nil
	}
	if res.Scope != nil {
		return res.Scope
	}
	return ScopeFrom(res.context())
}

// ── Provider compilation ─────────────────────────────────────────────────────

// compileProvider turns a validated registration into its Provider. The
// lifetime decides where construction results live: the process store, the
// request scope, or nowhere.
func (c *Container) compileProvider(reg *registration) Provider {
	switch reg.binding.Lifetime {
	case Singleton:
		return func(res *Resolution) (any, error) {
			return c.resolveSingleton(reg, res)
		}
	case Scoped:
		return func(res *Resolution) (any, error) {
			scope := res.scope()
			if scope == nil {
				return nil, fmt.Errorf("%w: resolving scoped %s", ErrNoScope, reg.binding.Protocol)
			}
			return scope.getOrCreate(reg.binding.Protocol, func() (any, func(), error) {
				return c.construct(reg, res)
			})
		}
	default: // Transient
		return func(res *Resolution) (any, error) {
			v, cleanup, err := c.construct(reg, res)
			if err != nil {
				return nil, err
			}
			if scope := res.scope(); scope != nil {
				if cleanup != nil {
					scope.addCleanup(reg.binding.Protocol, func(context.Context) error { cleanup(); return nil })
				}
				if hook := disposalHookOf(v); hook != nil {
					scope.addCleanup(reg.binding.Protocol, hook)
				}
			} else if cleanup != nil {
				c.log.Debug("container: transient cleanup dropped, no scope to attach it to",
					zap.Stringer("protocol", reg.binding.Protocol))
			}
			return v, nil
		}
	}
}

// invokeProvider runs the provider for key, letting an installed override
// substitute it first and the before-resolve hook veto or wrap it.
func (c *Container) invokeProvider(key reflect.Type, reg *registration, res *Resolution) (any, error) {
	p := reg.provider
	if res != nil && res.Overrides != nil {
		if op, ok := res.Overrides.Provider(key); ok {
			p = op
		}
	}
	if c.beforeResolve != nil {
		hooked, err := c.beforeResolve(key, p)
		if err != nil {
			return nil, err
		}
		if hooked != nil {
			p = hooked
		}
	}
	return p(res)
}

// ── Construction ─────────────────────────────────────────────────────────────

// construct produces one fresh value for reg: invoke the constructor (or
// allocate the prototype), then fill any still-zero injectable fields.
// The returned cleanup is non-nil only for cleanup-returning constructors.
func (c *Container) construct(reg *registration, res *Resolution) (any, func(), error) {
	impl := reg.impl

	switch impl.kind {
	case implInstance:
		return impl.instance.Interface(), nil, nil

	case implPrototype:
		v := reflect.New(impl.proto)
		if err := c.fillFields(reg, v, res); err != nil {
			return nil, nil, err
		}
		return v.Interface(), nil, nil

	default: // implCtor
		args := make([]reflect.Value, len(reg.paramNodes))
		for i, node := range reg.paramNodes {
			arg, err := c.resolveNode(node, res)
			if err != nil {
				return nil, nil, err
			}
			args[i] = arg
		}
		outs := impl.ctor.Call(args)
		if impl.errIndex >= 0 && !outs[impl.errIndex].IsNil() {
			return nil, nil, fmt.Errorf("container: constructing %s: %w",
				reg.binding.Protocol, outs[impl.errIndex].Interface().(error))
		}
		var cleanup func()
		if impl.cleanupIndex >= 0 && !outs[impl.cleanupIndex].IsNil() {
			cleanup = outs[impl.cleanupIndex].Interface().(func())
		}
		result := outs[0]
		if result.Kind() == reflect.Ptr && result.Type().Elem().Kind() == reflect.Struct && !result.IsNil() {
			if err := c.fillFields(reg, result, res); err != nil {
				if cleanup != nil {
					cleanup()
				}
				return nil, nil, err
			}
		}
		return result.Interface(), cleanup, nil
	}
}

// fillFields performs class-attribute injection on a *Struct value: every
// managed field that is still zero gets resolved. A field the constructor
// already assigned keeps its value — that is the opt-out signal.
func (c *Container) fillFields(reg *registration, ptr reflect.Value, res *Resolution) error {
	if len(reg.fieldNodes) == 0 {
		return nil
	}
	elem := ptr.Elem()
	for _, node := range reg.fieldNodes {
		if node.Classification != Managed {
			continue
		}
		f := elem.FieldByIndex(node.ann.fieldIndex)
		if !f.IsZero() {
			continue
		}
		v, err := c.resolveNode(node, res)
		if err != nil {
			return err
		}
		if v.IsValid() {
			f.Set(v)
		}
	}
	return nil
}

// resolveNode produces the reflect.Value for one plan node at request time.
func (c *Container) resolveNode(node *ResolutionNode, res *Resolution) (reflect.Value, error) {
	want := node.ann.typ

	switch node.Classification {
	case Managed:
		v, err := c.invokeProvider(node.Key, node.child, res)
		if err != nil {
			return reflect.Value{}, err
		}
		return coerce(node.Key, v, want)

	case FrameworkNative:
		return nativeValue(want, res), nil

	default: // Passthrough: endpoint-level passthroughs are bound by the
		// host binder; nested ones stay zero.
		return reflect.Zero(want), nil
	}
}

func coerce(key reflect.Type, v any, want reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(want), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(want) {
		return rv, nil
	}
	// *Impl resolved for an Impl annotation (or vice versa)
	if rv.Kind() == reflect.Ptr && rv.Type().Elem().AssignableTo(want) && !rv.IsNil() {
		return rv.Elem(), nil
	}
	if want.Kind() == reflect.Ptr && rv.Type().AssignableTo(want.Elem()) {
		p := reflect.New(want.Elem())
		p.Elem().Set(rv)
		return p, nil
	}
	return reflect.Value{}, fmt.Errorf("container: %s resolved to %s, which is not assignable to %s", key, rv.Type(), want)
}

// nativeValue supplies a framework-native parameter from the live request.
// Outside of a request (nil Resolution fields) the zero value is used.
func nativeValue(t reflect.Type, res *Resolution) reflect.Value {
	r := (*http.Request)(nil)
	if res != nil {
		r = res.Request
	}
	switch t {
	case reflect.TypeFor[context.Context]():
		return reflect.ValueOf(res.context())
	case reflect.TypeFor[*http.Request]():
		if r == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(r)
	case reflect.TypeFor[http.ResponseWriter]():
		if res == nil || res.ResponseWriter == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(res.ResponseWriter)
	case reflect.TypeFor[*gohttp.Request]():
		if r == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(gohttp.NewRequest(r))
	case reflect.TypeFor[*gohttp.Response]():
		if res == nil || res.ResponseWriter == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(gohttp.NewResponse(res.ResponseWriter))
	case reflect.TypeFor[gohttp.PathParams]():
		if r == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(gohttp.PathParamsOf(r))
	case reflect.TypeFor[gohttp.Query]():
		if r == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(gohttp.QueryOf(r))
	case reflect.TypeFor[gohttp.Headers]():
		if r == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(gohttp.HeadersOf(r))
	case reflect.TypeFor[gohttp.Form]():
		if r == nil {
			return reflect.Zero(t)
		}
		return reflect.ValueOf(gohttp.FormOf(r))
	case reflect.TypeFor[*multipart.FileHeader]():
		if r == nil {
			return reflect.Zero(t)
		}
		if fh := gohttp.FileOf(r); fh != nil {
			return reflect.ValueOf(fh)
		}
		return reflect.Zero(t)
	case reflect.TypeFor[[]*multipart.FileHeader]():
		if r == nil {
			return reflect.Zero(t)
		}
		if files := gohttp.FilesOf(r); files != nil {
			return reflect.ValueOf(files)
		}
		return reflect.Zero(t)
	}
	return reflect.Zero(t)
}
