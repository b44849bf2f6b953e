package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Named loggers. They start as no-op loggers so packages can log before
// InitLoggers runs (tests, the CLI before its config is loaded).
var (
	ErrorLogger    = zap.NewNop()
	AuditLogger    = zap.NewNop()
	RequestLogger  = zap.NewNop()
	SecurityLogger = zap.NewNop()
	SystemLogger   = zap.NewNop()
	ContextLogger  = zap.NewNop()
)

type sink struct {
	file   string
	level  zapcore.Level
	target **zap.Logger
}

var sinks = []sink{
	{"errors.log", zapcore.ErrorLevel, &ErrorLogger},
	{"audit.log", zapcore.InfoLevel, &AuditLogger},
	{"request.log", zapcore.InfoLevel, &RequestLogger},
	{"security.log", zapcore.WarnLevel, &SecurityLogger},
	{"system.log", zapcore.InfoLevel, &SystemLogger},
	{"context.log", zapcore.DebugLevel, &ContextLogger},
}

func newLogger(path string, level zapcore.Level) (*zap.Logger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level)
	return zap.New(core), nil
}

// InitLoggers opens one JSON log file per named logger inside dir.
// Nothing is replaced unless every file opens.
func InitLoggers(dir string) error {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	opened := make([]*zap.Logger, len(sinks))
	for i, s := range sinks {
		l, err := newLogger(filepath.Join(dir, s.file), s.level)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.file, err)
		}
		opened[i] = l
	}
	for i, s := range sinks {
		*s.target = opened[i]
	}
	return nil
}

func SyncLoggers() {
	for _, s := range sinks {
		_ = (*s.target).Sync()
	}
}
