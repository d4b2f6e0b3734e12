package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct, bound into the container
// as a singleton instance by ConfigServiceProvider.
//
// Values layer in order: built-in defaults, then a TOML file (fastioc.toml or
// $APP_CONFIG), then environment variables. Later layers win.
type Config struct {
	App    AppConfig    `toml:"app"`
	Server ServerConfig `toml:"server"`
}

type AppConfig struct {
	Name  string `toml:"name"`
	Env   string `toml:"env"` // local | production | testing
	Debug bool   `toml:"debug"`
}

type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            string   `toml:"port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Duration is a time.Duration that decodes from TOML strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// Load reads .env (if present), overlays the TOML config file and finally
// the environment. Call once at bootstrap: cfg, err := config.Load()
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg := &Config{
		App: AppConfig{
			Name:  "fastioc",
			Env:   "local",
			Debug: true,
		},
		Server: ServerConfig{
			Host:            "",
			Port:            "8000",
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}

	if err := overlayTOML(cfg); err != nil {
		return nil, err
	}
	overlayEnv(cfg)
	return cfg, nil
}

// overlayTOML decodes the config file on top of cfg. A missing file is fine;
// a malformed one is not.
func overlayTOML(cfg *Config) error {
	path := env("APP_CONFIG", "fastioc.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.App.Name = env("APP_NAME", cfg.App.Name)
	cfg.App.Env = env("APP_ENV", cfg.App.Env)
	cfg.App.Debug = envBool("APP_DEBUG", cfg.App.Debug)
	cfg.Server.Host = env("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = env("APP_PORT", cfg.Server.Port)
	cfg.Server.ShutdownTimeout = Duration(envDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout.Std()))
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
