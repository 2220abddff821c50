// Package logging is this module's ambient logging layer: a thin,
// constructor-configured wrapper over zap, grounded in
// VeridicalDB's internal/logger. Every component that used to emit
// teacher-style fmt.Printf debug tags ("[BufferPool] HIT ...") logs
// through here instead, structured rather than formatted.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger with the join engine's level/format
// configuration knobs.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New builds a Logger writing to stderr at the given level ("debug",
// "info", "warn", "error"). format "json" selects the production JSON
// encoder; anything else selects a human-readable console encoder.
func New(level, format string) (*Logger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "", "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapLevel)
	base := zap.New(core, zap.AddCallerSkip(1))
	return &Logger{SugaredLogger: base.Sugar(), base: base}, nil
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// Nop returns a Logger that discards everything, for tests and call
// sites that don't want to configure output.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}
