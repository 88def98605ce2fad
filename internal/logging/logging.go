// Package logging builds the process-wide logger. Configuration happens
// exactly once, in main; everything else receives the logger explicitly.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The two verbosity levels the --level flag selects between.
const (
	InfoLevel = "INFO"
	WarnLevel = "WARNING"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

func toZapLevel(level string) zapcore.Level {
	if level == InfoLevel {
		return zapcore.InfoLevel
	}
	return zapcore.WarnLevel
}

// New constructs a console logger at the given level. Unknown level
// strings fall back to WARNING, the quieter default.
func New(level string) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(toZapLevel(level)),
	)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
