package routing

import (
	"fmt"
	"net/http"
	"reflect"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/fastioc/framework/container"
)

// Router wraps chi.Router with container-aware handler registration. It owns
// the per-request side of dependency injection: it opens a request scope,
// hands compiled providers their Resolution, binds passthrough parameters
// from request input and renders handler results.
type Router struct {
	mux       chi.Router
	c         *container.Container
	log       *zap.Logger
	overrides *overrideHolder
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for request-time injection failures.
func WithLogger(log *zap.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Router bound to c, with sane default middleware and the
// request-scope middleware installed.
func New(c *container.Container, opts ...Option) *Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	r := &Router{
		mux:       mux,
		c:         c,
		log:       zap.NewNop(),
		overrides: &overrideHolder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	mux.Use(r.scopeMiddleware)
	return r
}

// scopeMiddleware opens a fresh container scope per request and closes it —
// running scoped disposal hooks and cleanups — once the response is written.
func (r *Router) scopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		scope := r.c.NewScope()
		ctx := container.WithScope(req.Context(), scope)
		defer scope.Close(ctx)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// ── Overrides ────────────────────────────────────────────────────────────────

type overrideHolder struct {
	mu sync.RWMutex
	o  *container.Overrides
}

func (h *overrideHolder) get() *container.Overrides {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.o
}

// UseOverrides installs (or, with nil, removes) a substitution table built by
// Container.Override. This is the router's override point for tests.
func (r *Router) UseOverrides(o *container.Overrides) {
	r.overrides.mu.Lock()
	r.overrides.o = o
	r.overrides.mu.Unlock()
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

// Handlers may be plain http.HandlerFunc values or injectable funcs whose
// parameters mix framework natives, container-managed protocols and
// passthrough request payloads:
//
//	r.Get("/report", func(req *gohttp.Request, clock IClock) (Report, error) { ... })
//
// Optional trailing protocols are route-level dependencies, resolved before
// the handler runs (auth guards and the like).

func (r *Router) Get(pattern string, handler any, deps ...reflect.Type) {
	r.handle(http.MethodGet, pattern, handler, deps)
}

func (r *Router) Post(pattern string, handler any, deps ...reflect.Type) {
	r.handle(http.MethodPost, pattern, handler, deps)
}

func (r *Router) Put(pattern string, handler any, deps ...reflect.Type) {
	r.handle(http.MethodPut, pattern, handler, deps)
}

func (r *Router) Patch(pattern string, handler any, deps ...reflect.Type) {
	r.handle(http.MethodPatch, pattern, handler, deps)
}

func (r *Router) Delete(pattern string, handler any, deps ...reflect.Type) {
	r.handle(http.MethodDelete, pattern, handler, deps)
}

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, handler any, deps ...reflect.Type) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.handle(m, pattern, handler, deps)
	}
}

// handle compiles the handler's injection plan once, at registration.
// Route registration is startup code, so a handler the container cannot plan
// is a programming error and panics immediately rather than 500ing later.
func (r *Router) handle(method, pattern string, handler any, deps []reflect.Type) {
	h, err := r.compile(handler, deps)
	if err != nil {
		panic(fmt.Sprintf("routing: %s %s: %v", method, pattern, err))
	}
	r.mux.Method(method, pattern, h)
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing this router's container.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(r.clone(mx))
	})
}

// Prefix creates a sub-router under a URL prefix.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(r.clone(mx))
	})
}

func (r *Router) clone(mx chi.Router) *Router {
	return &Router{mux: mx, c: r.c, log: r.log, overrides: r.overrides}
}

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// Static serves a filesystem at the given prefix.
func (r *Router) Static(prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.mux.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}

// Param extracts a URL route parameter.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// Container returns the container this router resolves against.
func (r *Router) Container() *container.Container { return r.c }

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
