package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/fastioc/framework/config"
	"github.com/km-arc/fastioc/framework/container"
	"github.com/km-arc/fastioc/framework/logging"
	"github.com/km-arc/fastioc/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env plus
// the TOML config file and binds it as a singleton instance.
//
// Bound protocols:
//   - *config.Config (alias "config")
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	cfg, err := config.Load(p.EnvFiles...)
	if err != nil {
		return err
	}
	if err := container.AddInstance[*config.Config](app, cfg); err != nil {
		return err
	}
	app.Alias("config", container.Key[*config.Config]())
	return nil
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider registers the application logger.
//
// Bound protocols:
//   - *zap.Logger (alias "log")
type LoggingServiceProvider struct {
	container.BaseProvider
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	err := container.AddSingleton[*zap.Logger](app, func(cfg *config.Config) (*zap.Logger, error) {
		return logging.New(cfg)
	})
	if err != nil {
		return err
	}
	app.Alias("log", container.Key[*zap.Logger]())
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router, bound to the application
// container so handler injection plans compile against the same bindings.
//
// Bound protocols:
//   - *routing.Router (alias "router")
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	err := container.AddSingleton[*routing.Router](app, func(log *zap.Logger) *routing.Router {
		return routing.New(app, routing.WithLogger(log))
	})
	if err != nil {
		return err
	}
	app.Alias("router", container.Key[*routing.Router]())
	return nil
}
