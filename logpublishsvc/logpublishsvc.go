package logpublishsvc

import (
	"context"
	"github.com/lefinal/memorama/event"
	"github.com/lefinal/memorama/logging"
	"github.com/lefinal/memorama/portal"
	"github.com/lefinal/memorama/service"
	"go.uber.org/zap"
	"time"
)

// TopicLogPublish is the topic to publish log entries to.
const TopicLogPublish portal.Topic = "memorama/log/next"

// publishDebounceDelay is the delay to wait for collecting log entries. This
// avoids publishing on every log call.
const publishDebounceDelay = 100 * time.Millisecond

// logPublishService publishes log entries from logEntriesIn to the portal.
type logPublishService struct {
	logger *zap.Logger
	portal portal.Portal
	// logEntriesIn is the channel to read log entries to publish from.
	logEntriesIn <-chan logging.LogEntry
}

// New creates a new log publish service that can be run. The given
// logging.LogEntry channel is the channel log entries will be read from. The
// portal must use a logger created with logging.NoPublish.
func New(logger *zap.Logger, portal portal.Portal, logEntriesIn <-chan logging.LogEntry) service.Service {
	return &logPublishService{
		logger:       logger,
		portal:       portal,
		logEntriesIn: logEntriesIn,
	}
}

// Run the service until the given context.Context is done.
func (s *logPublishService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, more := <-s.logEntriesIn:
			if !more {
				return nil
			}
			s.publishLogEntriesAfterDelay(ctx, entry)
		}
	}
}

// publishLogEntriesAfterDelay waits for publishDebounceDelay and publishes the
// given logging.LogEntry as well as all entries that arrived in the meantime.
func (s *logPublishService) publishLogEntriesAfterDelay(ctx context.Context, firstEntry logging.LogEntry) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(publishDebounceDelay):
	}
	s.publishLogEntry(ctx, firstEntry)
	for {
		select {
		case entry, more := <-s.logEntriesIn:
			if !more {
				return
			}
			s.publishLogEntry(ctx, entry)
		default:
			return
		}
	}
}

func (s *logPublishService) publishLogEntry(ctx context.Context, entry logging.LogEntry) {
	s.portal.Publish(ctx, TopicLogPublish, event.NextLogEntryEvent{
		Time:       entry.Time,
		Message:    entry.Message,
		Level:      entry.Level.String(),
		LoggerName: entry.LoggerName,
		Fields:     entry.Fields,
	})
}
