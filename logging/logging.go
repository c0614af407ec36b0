// Package logging contains the structured, leveled logger used throughout the obstacles detector.
package logging

import (
	"io"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewEncoderConfig returns the console encoder settings shared by every logger: ISO8601 times,
// colored capital levels and short callers.
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return newStdoutLogger(name, INFO)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	return newStdoutLogger(name, DEBUG)
}

// NewFileLogger returns a logger that outputs Info+ logs to stdout like NewLogger and also
// appends them as JSON lines to the file at path, rotated once it reaches 100 megabytes. Closing
// the returned io.Closer closes the file.
func NewFileLogger(name, path string) (Logger, io.Closer) {
	level := zap.NewAtomicLevelAt(INFO.AsZap())
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
	}
	fileConfig := NewEncoderConfig()
	fileConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	stdout := zapcore.NewCore(zapcore.NewConsoleEncoder(NewEncoderConfig()), zapcore.Lock(os.Stdout), level)
	toFile := zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(file), level)
	return newImpl(name, level, stdout, toFile), file
}

// NewBlankLogger returns a new logger that discards everything. Useful as a default for optional
// logger arguments.
func NewBlankLogger(name string) Logger {
	return newImpl(name, zap.NewAtomicLevelAt(DEBUG.AsZap()), zapcore.NewNopCore())
}

// NewTestLogger returns a new logger that outputs Debug+ logs through the testing.TB so output is
// associated with the test that produced it.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	level := zap.NewAtomicLevelAt(DEBUG.AsZap())
	testCore := zaptest.NewLogger(tb, zaptest.Level(level)).Core()
	observerCore, observedLogs := observer.New(level)
	return newImpl("", level, testCore, observerCore), observedLogs
}

func newStdoutLogger(name string, lvl Level) Logger {
	level := zap.NewAtomicLevelAt(lvl.AsZap())
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(NewEncoderConfig()), zapcore.Lock(os.Stdout), level)
	return newImpl(name, level, core)
}
