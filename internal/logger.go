package internal

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

var (
	logLevel = LogLevelInfo
	logMu    sync.Mutex
	atom     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger   = newLogger(os.Stderr)
)

func newLogger(w zapcore.WriteSyncer) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	cfg.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(w), atom)
	return zap.New(core).Sugar()
}

// setLogOutput redirects log output
func setLogOutput(w zapcore.WriteSyncer) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = newLogger(w)
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	defer logMu.Unlock()
	logLevel = level
	switch level {
	case LogLevelError:
		atom.SetLevel(zapcore.ErrorLevel)
	case LogLevelWarn:
		atom.SetLevel(zapcore.WarnLevel)
	case LogLevelInfo:
		atom.SetLevel(zapcore.InfoLevel)
	default:
		atom.SetLevel(zapcore.DebugLevel)
	}
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

func current() *zap.SugaredLogger {
	logMu.Lock()
	defer logMu.Unlock()
	return logger
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// SyncLogs flushes buffered log entries
func SyncLogs() {
	_ = current().Sync()
}
