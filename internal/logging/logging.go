package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger shared by commands, the server and the pipeline.
type Logger struct {
	*zap.SugaredLogger
}

// builds a console logger at the named level (debug, info, warn, error).
// Unknown levels fall back to info.
func NewWithLevel(level string) *Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.DisableCaller = lvl > zapcore.DebugLevel
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// discards everything; used by tests and as a nil fallback
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// returns l, or a no-op logger when l is nil
func OrNop(l *Logger) *Logger {
	if l == nil || l.SugaredLogger == nil {
		return NewNop()
	}
	return l
}

// Sync flushes buffered entries. Errors from syncing stderr on some
// platforms are not actionable and are dropped.
func (l *Logger) Sync() {
	if l == nil || l.SugaredLogger == nil {
		return
	}
	_ = l.SugaredLogger.Sync()
}
