package logging

import (
	"context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"strings"
	"time"
)

// NoPublishLoggerName is the name segment that marks loggers whose entries are
// not published. This is used for everything that is involved in publishing
// log entries as it would otherwise cause publishing loops.
const NoPublishLoggerName = "no-publish"

// publishBufferSize is the number of log entries to buffer for publishing.
// Entries are dropped if the buffer is full.
const publishBufferSize = 256

// LogEntry is a log entry that was written to the core created with
// NewNoPublishOmitCore.
type LogEntry struct {
	Time       time.Time
	Message    string
	Level      zapcore.Level
	LoggerName string
	Fields     map[string]interface{}
}

// NoPublish returns a named logger whose entries will not be published.
func NoPublish(logger *zap.Logger) *zap.Logger {
	return logger.Named(NoPublishLoggerName)
}

// noPublishOmitCore is a zapcore.Core that forwards log entries to a channel
// and omits the ones from loggers named with NoPublishLoggerName.
type noPublishOmitCore struct {
	zapcore.LevelEnabler
	lifetime context.Context
	fields   []zapcore.Field
	out      chan<- LogEntry
}

// NewNoPublishOmitCore creates a zapcore.Core that forwards info entries and
// above to the returned channel until the given context.Context is done.
// Entries from loggers named with NoPublishLoggerName are omitted.
func NewNoPublishOmitCore(ctx context.Context) (zapcore.Core, <-chan LogEntry) {
	out := make(chan LogEntry, publishBufferSize)
	return &noPublishOmitCore{
		LevelEnabler: zap.InfoLevel,
		lifetime:     ctx,
		out:          out,
	}, out
}

func (c *noPublishOmitCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	combined = append(combined, fields...)
	return &noPublishOmitCore{
		LevelEnabler: c.LevelEnabler,
		lifetime:     c.lifetime,
		fields:       combined,
		out:          c.out,
	}
}

func (c *noPublishOmitCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) || isNoPublish(entry.LoggerName) {
		return checked
	}
	return checked.AddCore(entry, c)
}

func (c *noPublishOmitCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.lifetime.Err() != nil {
		return nil
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}
	select {
	case <-c.lifetime.Done():
	case c.out <- LogEntry{
		Time:       entry.Time,
		Message:    entry.Message,
		Level:      entry.Level,
		LoggerName: entry.LoggerName,
		Fields:     enc.Fields,
	}:
	default:
		// Buffer full. Blocking would stall every logging call.
	}
	return nil
}

func (c *noPublishOmitCore) Sync() error {
	return nil
}

// isNoPublish checks whether the given logger name contains
// NoPublishLoggerName as segment.
func isNoPublish(loggerName string) bool {
	for _, segment := range strings.Split(loggerName, ".") {
		if segment == NoPublishLoggerName {
			return true
		}
	}
	return false
}
