package routing

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/fastioc/framework/container"
	gohttp "github.com/km-arc/fastioc/framework/http"
)

var errType = reflect.TypeFor[error]()

// bindError marks a failure of the native binder, so the router can answer
// 400 instead of 500.
type bindError struct{ err error }

func (e *bindError) Error() string { return e.err.Error() }
func (e *bindError) Unwrap() error { return e.err }

// compile turns a handler of any supported shape into an http.Handler.
//
// Plain handlers (http.Handler, http.HandlerFunc and bare func(w, r)) pass
// through untouched apart from route-level dependency resolution. Anything
// else must be a func the container can plan: parameters are injected,
// passthrough structs are bound from the request, and results are rendered
// as JSON.
func (r *Router) compile(handler any, deps []reflect.Type) (http.Handler, error) {
	depProviders, err := r.depProviders(deps)
	if err != nil {
		return nil, err
	}

	if h := asPlainHandler(handler); h != nil {
		return r.wrap(depProviders, func(w http.ResponseWriter, req *http.Request, res *container.Resolution) {
			h.ServeHTTP(w, req)
		}), nil
	}

	plan, err := r.c.PlanCallable(handler)
	if err != nil {
		return nil, err
	}
	render, err := renderer(reflect.TypeOf(handler))
	if err != nil {
		return nil, err
	}

	return r.wrap(depProviders, func(w http.ResponseWriter, req *http.Request, res *container.Resolution) {
		outs, err := plan.Call(res, bindFromRequest)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		render(gohttp.NewResponse(w), outs)
	}), nil
}

func asPlainHandler(handler any) http.Handler {
	switch h := handler.(type) {
	case http.Handler:
		return h
	case http.HandlerFunc:
		return h
	case func(http.ResponseWriter, *http.Request):
		return http.HandlerFunc(h)
	}
	return nil
}

// depProviders resolves route-level dependency keys to their providers at
// registration time, so an unregistered guard fails the boot, not a request.
func (r *Router) depProviders(deps []reflect.Type) ([]container.Provider, error) {
	ps := make([]container.Provider, 0, len(deps))
	for _, dep := range deps {
		p, err := r.c.ProviderFor(dep)
		if err != nil {
			return nil, fmt.Errorf("route dependency %s: %w", dep, err)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

// wrap builds the per-request shell shared by all handler shapes: assemble
// the Resolution, run route-level dependencies, then the handler body.
func (r *Router) wrap(deps []container.Provider, body func(http.ResponseWriter, *http.Request, *container.Resolution)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		res := &container.Resolution{
			Ctx:            req.Context(),
			Scope:          container.ScopeFrom(req.Context()),
			Request:        req,
			ResponseWriter: w,
			Overrides:      r.overrides.get(),
		}
		for _, dep := range deps {
			if _, err := dep(res); err != nil {
				r.fail(w, req, err)
				return
			}
		}
		body(w, req, res)
	})
}

func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	res := gohttp.NewResponse(w)
	var be *bindError
	if errors.As(err, &be) {
		res.BadRequest(be.Error())
		return
	}
	r.log.Error("routing: handler resolution failed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Error(err))
	res.ServerError("internal server error")
}

// ── Passthrough binding ──────────────────────────────────────────────────────

// bindFromRequest fills a passthrough handler parameter (a request payload
// struct) from the request body or query string.
func bindFromRequest(t reflect.Type, res *container.Resolution) (any, error) {
	if res == nil || res.Request == nil {
		return reflect.Zero(t).Interface(), nil
	}
	req := gohttp.NewRequest(res.Request)

	switch {
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		v := reflect.New(t.Elem())
		if err := req.Bind(v.Interface()); err != nil {
			return nil, &bindError{err: err}
		}
		return v.Interface(), nil
	case t.Kind() == reflect.Struct:
		v := reflect.New(t)
		if err := req.Bind(v.Interface()); err != nil {
			return nil, &bindError{err: err}
		}
		return v.Elem().Interface(), nil
	}
	return reflect.Zero(t).Interface(), nil
}

// ── Result rendering ─────────────────────────────────────────────────────────

// renderer maps a handler's return shape to a response writer. Supported
// shapes: none (the handler wrote the response itself), error, T, and
// (T, error).
func renderer(fnType reflect.Type) (func(*gohttp.Response, []reflect.Value), error) {
	switch fnType.NumOut() {
	case 0:
		return func(*gohttp.Response, []reflect.Value) {}, nil

	case 1:
		if fnType.Out(0) == errType {
			return func(res *gohttp.Response, outs []reflect.Value) {
				renderErrOrNoContent(res, outs[0])
			}, nil
		}
		return func(res *gohttp.Response, outs []reflect.Value) {
			res.Success(outs[0].Interface())
		}, nil

	case 2:
		if fnType.Out(1) != errType {
			return nil, fmt.Errorf("handler %s: second return value must be error", fnType)
		}
		return func(res *gohttp.Response, outs []reflect.Value) {
			if !outs[1].IsNil() {
				res.ServerError(outs[1].Interface().(error).Error())
				return
			}
			res.Success(outs[0].Interface())
		}, nil
	}
	return nil, fmt.Errorf("handler %s: too many return values", fnType)
}

func renderErrOrNoContent(res *gohttp.Response, errVal reflect.Value) {
	if !errVal.IsNil() {
		res.ServerError(errVal.Interface().(error).Error())
		return
	}
	res.NoContent()
}
