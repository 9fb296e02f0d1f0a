// Package logging builds the zap loggers used by the fbsgen command.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr. Verbose lowers the level
// to debug; JSON switches to zap's production encoder.
func New(verbose, json bool) (*zap.Logger, error) {
	if json {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level(verbose))
		cfg.OutputPaths = []string{"stderr"}

		return cfg.Build()
	}

	return NewConsole(os.Stderr, verbose), nil
}

// NewConsole returns a human readable logger writing to w.
func NewConsole(w io.Writer, verbose bool) *zap.Logger {
	return zap.New(zapcore.NewCore(
		newMinimalEncoder(),
		zapcore.AddSync(w),
		level(verbose),
	))
}

// Nop is the logger used when none is configured.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func level(verbose bool) zapcore.Level {
	if verbose {
		return zap.DebugLevel
	}

	return zap.InfoLevel
}

// newMinimalEncoder omits timestamps and callers; generator output is
// short lived and read by humans.
func newMinimalEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.NameKey = "logger"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	return zapcore.NewConsoleEncoder(cfg)
}
