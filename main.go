package main

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/fastioc/framework/app"
	"github.com/km-arc/fastioc/framework/container"
	"github.com/km-arc/fastioc/framework/controller"
	gohttp "github.com/km-arc/fastioc/framework/http"
	"github.com/km-arc/fastioc/framework/routing"
)

// ── Services ────────────────────────────────────────────────────────────────

type IClock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type IGreeter interface {
	Greet(name string) string
}

// Greeter is scoped: one instance per request, sharing the process-wide clock.
type Greeter struct {
	clock IClock
}

func NewGreeter(clock IClock) *Greeter { return &Greeter{clock: clock} }

func (g *Greeter) Greet(name string) string {
	return fmt.Sprintf("Hello, %s! It is %s.", name, g.clock.Now().Format(time.Kitchen))
}

// ── Controller ──────────────────────────────────────────────────────────────

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserController declares its process-wide collaborators as fields; the
// container fills them at mount time.
type UserController struct {
	Log *zap.Logger
}

func (uc *UserController) Routes() []controller.Route {
	return []controller.Route{
		{Method: "GET", Pattern: "/users/{id}", Handler: uc.Show},
		{Method: "POST", Pattern: "/users", Handler: uc.Create},
	}
}

func (uc *UserController) Show(params gohttp.PathParams) (map[string]any, error) {
	return map[string]any{"id": params.Get("id")}, nil
}

func (uc *UserController) Create(body CreateUserRequest, res *gohttp.Response) {
	uc.Log.Info("creating user", zap.String("name", body.Name))
	res.Created(map[string]any{"name": body.Name, "email": body.Email})
}

func main() {
	application := app.New() // loads .env + fastioc.toml automatically

	// ── Bindings ─────────────────────────────────────────────────────────────

	must(container.AddSingleton[IClock](application.Container, func() IClock { return SystemClock{} }))
	must(container.AddScoped[IGreeter](application.Container, NewGreeter))

	must(application.Boot())
	r := application.Router()

	// ── Injected handlers ────────────────────────────────────────────────────

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w).Success(map[string]any{"message": "Welcome to fastioc!"})
	})

	// Parameters are classified per kind: IGreeter comes from the container,
	// Query from the request.
	r.Get("/greet", func(greeter IGreeter, q gohttp.Query) (map[string]any, error) {
		name := q.Get("name")
		if name == "" {
			name = "world"
		}
		return map[string]any{"greeting": greeter.Greet(name)}, nil
	})

	// ── Controllers under a prefix ────────────────────────────────────────────

	r.Prefix("/api/v1", func(api *routing.Router) {
		controller.MustMount(api, application.Container, &UserController{})
	})

	// ── Auth group with middleware ────────────────────────────────────────────

	r.Group(func(protected *routing.Router) {
		protected.Middleware(AuthMiddleware)

		protected.Get("/profile", func(req *gohttp.Request) (map[string]any, error) {
			return map[string]any{"token": req.BearerToken()}, nil
		})
	})

	if err := application.Run(); err != nil {
		application.Log().Fatal("server error", zap.Error(err))
	}
}

// AuthMiddleware is an example bearer-token guard.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := gohttp.NewRequest(r)

		if req.BearerToken() == "" {
			gohttp.NewResponse(w).Unauthorized()
			return
		}
		next.ServeHTTP(w, r)
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
