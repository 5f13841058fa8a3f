// Package logger provides structured logging on top of logrus.
//
// # Usage
//
//	log := logger.New(logger.Config{Level: "info", Format: "json"})
//	logger.SetDefault(log)
//	defer logger.Sync()
//
//	logger.WithFields(logger.Fields{logger.FieldImportID: 42}).Info("[IMPORT] started")
package logger

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a set of structured log fields.
type Fields map[string]any

// Common field names.
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldImportID  = "import_id"
	FieldProvider  = "provider"
	FieldPhotoID   = "photo_id"
	FieldTaskID    = "task_id"
)

// Logger wraps logrus.Entry so derived loggers keep their fields.
type Logger struct {
	*logrus.Entry
}

// Config holds logger configuration.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json, text
	Output io.Writer // defaults to stdout

	// File enables a rotating log file in addition to Output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	ServiceName string
}

var (
	defaultLogger   = New(Config{})
	defaultLoggerMu sync.RWMutex

	fileCloser   io.Closer
	fileCloserMu sync.Mutex
)

// New creates a Logger from cfg. Unknown levels fall back to info.
func New(cfg Config) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		fileCloserMu.Lock()
		fileCloser = rotating
		fileCloserMu.Unlock()
		out = io.MultiWriter(out, rotating)
	}
	log.SetOutput(out)

	service := cfg.ServiceName
	if service == "" {
		service = "gallery"
	}
	return &Logger{Entry: log.WithField("service", service)}
}

// Sync closes the rotating log file, if any.
func Sync() error {
	fileCloserMu.Lock()
	defer fileCloserMu.Unlock()
	if fileCloser != nil {
		return fileCloser.Close()
	}
	return nil
}

// SetDefault replaces the package-level logger. Nil is ignored.
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}

// Default returns the package-level logger.
func Default() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// WithFields returns a derived Logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a derived Logger with one additional field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a derived Logger carrying err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

type contextKey struct{}

// WithContext stores l in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger stored in ctx, or the default one.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
			return l
		}
	}
	return Default()
}

// WithFields derives from the default logger.
func WithFields(fields Fields) *Logger {
	return Default().WithFields(fields)
}

// WithError derives from the default logger.
func WithError(err error) *Logger {
	return Default().WithError(err)
}

func Debug(format string, args ...any) { Default().Debugf(format, args...) }
func Info(format string, args ...any)  { Default().Infof(format, args...) }
func Warn(format string, args ...any)  { Default().Warnf(format, args...) }
func Error(format string, args ...any) { Default().Errorf(format, args...) }
func Fatal(format string, args ...any) { Default().Fatalf(format, args...) }
