// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// Logger is a structured logger backed by zap. The field-map API is kept so
// call sites read the same across the codebase.
type Logger struct {
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// redactedKeys are field names whose values never reach the log output
var redactedKeys = []string{"api_key", "apikey", "token", "secret", "password", "authorization"}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = level
		z, err := cfg.Build(zap.AddCallerSkip(2))
		if err != nil {
			z = zap.NewNop()
		}
		globalLogger = &Logger{sugar: z.Sugar(), level: level}
	})
	return globalLogger
}

// NewLogger wraps an existing zap logger, mostly for tests (zaptest, observer)
func NewLogger(z *zap.Logger) *Logger {
	return &Logger{
		sugar: z.WithOptions(zap.AddCallerSkip(2)).Sugar(),
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// InitLogger rebuilds the global logger. Debug mode uses zap's development
// encoder on stdout; otherwise JSON lines. When logFile is set the output is
// also appended to it.
func InitLogger(logFile string, debug bool) error {
	logger := GetLogger()

	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = logger.level
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	z, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	logger.mu.Lock()
	old := logger.sugar
	logger.sugar = z.Sugar()
	logger.mu.Unlock()

	_ = old.Sync()
	return nil
}

// SetLogLevel sets the minimum level for logging
func (l *Logger) SetLogLevel(level LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

// Sync flushes buffered entries
func (l *Logger) Sync() {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_ = l.sugar.Sync()
}

// log writes a log entry
func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	if l == nil || !l.level.Enabled(toZapLevel(level)) {
		return
	}
	l.mu.RLock()
	sugar := l.sugar
	l.mu.RUnlock()

	kv := fieldsToKVs(fields)
	switch level {
	case DEBUG:
		sugar.Debugw(message, kv...)
	case INFO:
		sugar.Infow(message, kv...)
	case WARNING:
		sugar.Warnw(message, kv...)
	case ERROR:
		sugar.Errorw(message, kv...)
	case FATAL:
		sugar.Fatalw(message, kv...)
	}
}

// fieldsToKVs flattens fields in key order, masking sensitive values
func fieldsToKVs(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		v := fields[k]
		if isSensitiveKey(k) {
			v = "[REDACTED]"
		}
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		kv = append(kv, k, v)
	}
	return kv
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range redactedKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DEBUG, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(INFO, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WARNING, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ERROR, message, fields)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.log(FATAL, message, fields)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...), nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WARNING, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(FATAL, fmt.Sprintf(format, args...), nil)
}
