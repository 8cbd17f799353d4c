package core

import (
	"os"
	"strings"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerModule provides *zap.SugaredLogger and *zap.Logger, mirroring the
// teacher's core.LoggerModule.
var LoggerModule = fx.Options(
	fx.Provide(NewSugaredLogger),
	fx.Provide(NewLogger),
)

// LoggingConfig is populated from the "logging" section NewConfig renders.
type LoggingConfig struct {
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

// NewLogger desugars the sugared logger, for call sites that want the
// structured *zap.Logger directly (e.g. go.lsp.dev/protocol dispatchers,
// which take a *zap.Logger).
func NewLogger(sugar *zap.SugaredLogger) *zap.Logger {
	return sugar.Desugar()
}

// NewSugaredLogger builds a *zap.SugaredLogger from the "logging" config
// section, matching spec.md §6's LOG_LEVEL values (error|warning|info|debug)
// — "warning" is mapped to zap's "warn" level name before parsing.
func NewSugaredLogger(provider config.Provider) (*zap.SugaredLogger, error) {
	var cfg LoggingConfig
	if err := provider.Get("logging").Populate(&cfg); err != nil {
		return nil, err
	}

	levelName := strings.ToLower(cfg.Level)
	if levelName == "warning" {
		levelName = "warn"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	zapCore := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)

	var logger *zap.Logger
	if cfg.Development {
		logger = zap.New(zapCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		logger = zap.New(zapCore)
	}
	return logger.Sugar(), nil
}
