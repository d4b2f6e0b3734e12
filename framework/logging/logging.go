package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/fastioc/framework/config"
)

// New builds the application logger from config. Debug mode gets the
// development console encoder; otherwise production JSON at info level.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg != nil && cfg.App.Debug {
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zc.Build()
	}
	return zap.NewProduction()
}

// Must is New with a panic on failure, for boot-time wiring.
func Must(cfg *config.Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
