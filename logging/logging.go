// Package logging sets up the zap logger used throughout the application.
package logging

import (
	"context"
	"github.com/gobuffalo/nulls"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"os"
)

// Config is the configuration for NewLogger.
type Config struct {
	// StdoutLogLevel is the minimum level for logging to stdout.
	StdoutLogLevel zapcore.Level
	// HighPriorityOutput is the optional file for warnings and errors.
	HighPriorityOutput nulls.String
	// DebugOutput is the optional file for all log entries.
	DebugOutput nulls.String
	// MaxSize is the maximum size in megabytes of a log file before it is
	// rotated.
	MaxSize int
	// KeepDays is the number of days to keep rotated log files.
	KeepDays int
	// Publish enables forwarding of log entries over the returned channel of
	// NewLogger.
	Publish bool
}

// encoderConfig is the base config for all encoders.
var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	CallerKey:      "caller",
	FunctionKey:    zapcore.OmitKey,
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// NewLogger creates the main logger with the given Config. If publishing is
// enabled, log entries are forwarded to the returned channel until the given
// context.Context is done. Otherwise, the channel is nil.
func NewLogger(ctx context.Context, config Config) (*zap.Logger, <-chan LogEntry) {
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encoderConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, newFileCore(config, config.HighPriorityOutput.String, zap.WarnLevel))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, newFileCore(config, config.DebugOutput.String, zap.DebugLevel))
	}
	// Setup publish logger.
	var publishLog <-chan LogEntry
	if config.Publish {
		var publishCore zapcore.Core
		publishCore, publishLog = NewNoPublishOmitCore(ctx)
		cores = append(cores, publishCore)
	}
	return zap.New(zapcore.NewTee(cores...)), publishLog
}

// newFileCore creates a zapcore.Core that writes to the given file which is
// rotated using lumberjack.
func newFileCore(config Config, filename string, minLevel zapcore.Level) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filename,
			MaxSize:  config.MaxSize,
			MaxAge:   config.KeepDays,
		}),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= minLevel
		}))
}
