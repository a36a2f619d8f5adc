// Package logger adapts the teacher's tiny printf-style logging surface
// (Init/Debug/Info/Error, LOG_LEVEL-driven) onto a zap SugaredLogger, the
// way homveloper-boss-raid-game's nstlog package wires zap's level and
// encoder config. A lumberjack-backed file sink is layered in alongside
// stdout so long-running collabctl servers don't grow an unbounded log
// file on disk.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	sugar  *zap.SugaredLogger
	logDir string
)

func init() {
	Init()
}

// Init (re)builds the logger from the LOG_LEVEL and LOG_FILE environment
// variables. LOG_LEVEL defaults to info; LOG_FILE, if set, adds a rotated
// file sink on top of stdout.
func Init() {
	mu.Lock()
	defer mu.Unlock()

	level := parseLevel(os.Getenv("LOG_LEVEL"))

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if logDir = os.Getenv("LOG_FILE"); logDir != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   logDir,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(sinks...), level)
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func parseLevel(raw string) zapcore.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return zapcore.DebugLevel
	case "error":
		return zapcore.ErrorLevel
	case "warn":
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a debug message (only surfaces when LOG_LEVEL=debug).
func Debug(format string, v ...interface{}) { current().Debugf(format, v...) }

// Info logs an info message.
func Info(format string, v ...interface{}) { current().Infof(format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { current().Warnf(format, v...) }

// Error logs an error message (always surfaces regardless of LOG_LEVEL).
func Error(format string, v ...interface{}) { current().Errorf(format, v...) }

// Sync flushes any buffered log entries; call before process exit.
func Sync() error { return current().Sync() }
