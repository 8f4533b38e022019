package infra

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Shared by every logger of the process, PUT/DELETE /debug flips it.
var LoggerLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// LoggerFactory hands out named children of one base logger, so every
// component's lines carry its name.
type LoggerFactory struct {
	baseLogger *zap.Logger
}

func (f *LoggerFactory) Create(name string) *zap.Logger {
	return f.baseLogger.Named(name)
}

func (f *LoggerFactory) Sync() {
	_ = f.baseLogger.Sync()
}

// ProvideLoggerFactory reads LOG_LEVEL (debug, info, warn, error) and
// LOG_ENCODING (console or json) from the environment.
func ProvideLoggerFactory() *LoggerFactory {
	logger := zap.Must(loggerConfig(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_ENCODING")).Build())
	logger.Info("logger created", zap.String("level", LoggerLevel.String()))

	return &LoggerFactory{
		baseLogger: logger,
	}
}

func loggerConfig(level string, encoding string) zap.Config {
	if level != "" {
		if err := LoggerLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			LoggerLevel.SetLevel(zapcore.InfoLevel)
		}
	}

	encoder := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "name",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Colors only make sense on a terminal.
	if encoding != "json" {
		encoding = "console"
	} else {
		encoder.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	return zap.Config{
		Level:            LoggerLevel,
		Encoding:         encoding,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoder,
	}
}

// For tests and tools that should stay quiet.
func NewNopLoggerFactory() *LoggerFactory {
	return &LoggerFactory{
		baseLogger: zap.NewNop(),
	}
}
