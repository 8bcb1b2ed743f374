// Package logging provides the process-wide zap logger behind printf-style helpers.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the zap encoder.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  *zap.SugaredLogger
	logger *zap.Logger
)

func init() {
	Setup(FormatJSON, "INFO")
}

// Setup replaces the global logger. Unknown levels fall back to INFO.
func Setup(format Format, lvl string) {
	level.SetLevel(ParseLevel(lvl))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	if format == FormatConsole {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	replace(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// ParseLevel maps a config level string onto a zap level.
func ParseLevel(lvl string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(lvl)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel changes the level of the running logger.
func SetLevel(lvl string) {
	level.SetLevel(ParseLevel(lvl))
}

// SetLoggerForTest installs l as the global logger and returns a restore func.
func SetLoggerForTest(l *zap.Logger) func() {
	mu.RLock()
	prev := logger
	mu.RUnlock()

	replace(l.WithOptions(zap.AddCallerSkip(1)))
	return func() { replace(prev) }
}

func replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	sugar = l.Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}

// UserInfo prints a plain line for CLI output, bypassing the structured log.
func UserInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// UserError prints a plain error line for CLI output.
func UserError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
