package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates an OpenTelemetry-aware zap logger writing JSON to stdout.
// Unknown levels fall back to info.
func NewLogger(level string) (*otelzap.Logger, error) {
	return newLogger(level, "json", "stdout")
}

// NewCLILogger writes human-readable logs to stderr so command output on
// stdout stays machine-readable.
func NewCLILogger(level string) (*otelzap.Logger, error) {
	return newLogger(level, "console", "stderr")
}

func newLogger(level, encoding, output string) (*otelzap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.Encoding = encoding
	if encoding == "console" {
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return otelzap.New(zapLogger, otelzap.WithMinLevel(zapLevel)), nil
}
