package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLoggerConfig(t *testing.T) {
	defer LoggerLevel.SetLevel(zapcore.InfoLevel)

	cfg := loggerConfig("DEBUG", "json")
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, LoggerLevel.Level())

	cfg = loggerConfig("nope", "xml")
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, LoggerLevel.Level())

	cfg = loggerConfig("", "")
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, LoggerLevel.Level())
}

func TestLoggerFactoryNamesLoggers(t *testing.T) {
	logger := NewNopLoggerFactory().Create("Hub")
	assert.NotNil(t, logger.Sugar())
}
