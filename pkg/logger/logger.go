package logger

import (
	"context"
	"io"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

type logrusLogger struct {
	logger *logrus.Logger
}

// getCallerFunctionName returns the short name of the function that called
// the logger.
func getCallerFunctionName() string {
	pc := make([]uintptr, 10)
	runtime.Callers(3, pc)
	fn := runtime.FuncForPC(pc[0])
	if fn == nil {
		return "unknown"
	}
	parts := strings.Split(fn.Name(), ".")
	return parts[len(parts)-1]
}

func (l *logrusLogger) entry(ctx context.Context) *logrus.Entry {
	entry := l.logger.WithContext(ctx)
	if traceID := getTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

func (l *logrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	args = append([]any{getCallerFunctionName()}, args...)
	l.entry(ctx).Warnf("[%s] "+msg, args...)
}

func (l *logrusLogger) Error(ctx context.Context, msg string, args ...any) {
	args = append([]any{getCallerFunctionName()}, args...)
	l.entry(ctx).Errorf("[%s] "+msg, args...)
}

func (l *logrusLogger) Info(ctx context.Context, msg string, args ...any) {
	args = append([]any{getCallerFunctionName()}, args...)
	l.entry(ctx).Infof("[%s] "+msg, args...)
}

func (l *logrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	args = append([]any{getCallerFunctionName()}, args...)
	l.entry(ctx).Debugf("[%s] "+msg, args...)
}

type LoggerConfig struct {
	Level      string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty" env:"LOG_LEVEL"`
	File       string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty" env:"LOG_FILE"`
	MaxSize    int    `json:"max_size,omitempty" yaml:"max_size,omitempty" toml:"max_size,omitempty"`          // MB per file, default 100
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" toml:"max_backups,omitempty"` // default 3
	MaxAge     int    `json:"max_age,omitempty" yaml:"max_age,omitempty" toml:"max_age,omitempty"`             // days, default 7
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty" toml:"compress,omitempty"`
}

// New builds a logrus backed Logger. Output goes to a rotated file when
// cfg.File is set, stderr otherwise.
func New(cfg *LoggerConfig) Logger {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	// JSON keeps trace_id greppable
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.File != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = 7
		}

		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   cfg.Compress,
		})
	}

	return &logrusLogger{logger: log}
}

// NewWithWriter is New with an explicit destination, used by tests and by
// the CLI when it needs stdout clean.
func NewWithWriter(w io.Writer, level string) Logger {
	l := New(&LoggerConfig{Level: level}).(*logrusLogger)
	l.logger.SetOutput(w)
	return l
}

type nopLogger struct{}

func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

// Nop discards everything.
func Nop() Logger { return nopLogger{} }

type contextKey string

const traceIDKey contextKey = "trace_id"

// WithTraceID attaches a trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func getTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func GetTraceID(ctx context.Context) string {
	return getTraceID(ctx)
}
