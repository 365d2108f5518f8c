package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin key/value wrapper around zap's sugared logger.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New creates a logger for the given level and environment.
// Production and staging emit JSON; everything else uses the console encoder.
func New(level, environment string) *Logger {
	var cfg zap.Config
	switch strings.ToLower(environment) {
	case "production", "staging":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"environment": environment}

	base, err := cfg.Build()
	if err != nil {
		base = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zap.InfoLevel,
		))
	}
	return NewLogger(base)
}

// NewLogger wraps an existing zap logger.
func NewLogger(base *zap.Logger) *Logger {
	return &Logger{SugaredLogger: base.WithOptions(zap.AddCallerSkip(1)).Sugar(), base: base}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return NewLogger(zap.NewNop())
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, keysAndValues...)
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugared := l.SugaredLogger.With(keysAndValues...)
	return &Logger{SugaredLogger: sugared, base: sugared.Desugar().WithOptions(zap.AddCallerSkip(-1))}
}

// ForRequest scopes the logger to one HTTP request.
func (l *Logger) ForRequest(requestID, method, path string) *Logger {
	return l.With("request_id", requestID, "method", method, "path", path)
}

// Zap exposes the structured logger for components that log with typed fields.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}
