package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/fastioc/framework/config"
	"github.com/km-arc/fastioc/framework/container"
	"github.com/km-arc/fastioc/framework/providers"
	"github.com/km-arc/fastioc/framework/routing"
)

// Application is the top-level application kernel. It embeds the IoC
// Container so user code can register bindings on it directly, and owns the
// provider lifecycle plus the HTTP server.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// New creates the application and registers the framework core providers.
func New(envFiles ...string) *Application {
	c := container.New()
	registry := container.NewProviderRegistry(c)

	app := &Application{
		Container: c,
		Providers: registry,
	}

	app.Register(&providers.ConfigServiceProvider{EnvFiles: envFiles})
	app.Register(&providers.LoggingServiceProvider{})
	app.Register(&providers.RoutingServiceProvider{})

	return app
}

// Register adds a ServiceProvider. Registration is startup code; a provider
// that fails to bind is a programming error and panics immediately.
func (a *Application) Register(provider container.ServiceProvider) {
	if err := a.Providers.Register(provider); err != nil {
		panic(err)
	}
}

// Boot runs the Boot phase on all providers and hands the booted logger to
// the container.
func (a *Application) Boot() error {
	if err := a.Providers.Boot(); err != nil {
		return err
	}
	a.Container.SetLogger(a.Log())
	return nil
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustResolve[*config.Config](a.Container, nil)
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, nil)
}

// Log resolves the application logger from the container.
func (a *Application) Log() *zap.Logger {
	return container.MustResolve[*zap.Logger](a.Container, nil)
}

// Run boots the application (if needed) and serves HTTP until the process
// receives SIGINT or SIGTERM, then shuts down gracefully: stop accepting,
// drain in-flight requests, dispose singletons exactly once.
func (a *Application) Run() error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}
	cfg := a.Config()
	log := a.Log()

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: a.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env))

	var err error
	select {
	case e := <-serveErr:
		if !errors.Is(e, http.ErrServerClosed) {
			err = e
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		err = multierr.Append(err, srv.Shutdown(sctx))
		cancel()
	}

	dctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	a.DisposeAll(dctx)
	cancel()
	_ = log.Sync()

	return err
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
