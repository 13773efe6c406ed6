package debugstats

import (
	"context"
	"fmt"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/kiosk"
	"github.com/lefinal/memorama/periodic"
	"github.com/lefinal/memorama/service"
	"go.uber.org/zap"
	"runtime"
	"time"
)

// Config for NewService.
type Config struct {
	// IsEnabled describes whether periodic debug stats logging is desired.
	IsEnabled bool
	// Interval in which to log debug stats.
	Interval time.Duration
	// IncludeStack adds the stack of all goroutines to the log entry.
	IncludeStack bool
}

// KioskStatsProvider provides statistics regarding connected kiosks.
type KioskStatsProvider interface {
	Stats() kiosk.Stats
}

type debugStatsService struct {
	logger *zap.Logger
	config Config
	kiosks KioskStatsProvider
}

// NewService creates a service.Service that periodically logs runtime and
// kiosk statistics.
func NewService(logger *zap.Logger, config Config, kiosks KioskStatsProvider) (service.Service, error) {
	if config.IsEnabled && config.Interval <= 0 {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "debug stats interval must be positive",
			errors.Details{"was": config.Interval.String()})
	}
	return &debugStatsService{
		logger: logger,
		config: config,
		kiosks: kiosks,
	}, nil
}

// Run the service until the given context.Context is done.
func (s *debugStatsService) Run(ctx context.Context) error {
	if !s.config.IsEnabled {
		return nil
	}
	s.logger.Debug(fmt.Sprintf("logging system state every %gs", s.config.Interval.Seconds()))
	ticker := periodic.NewTicker(s.config.Interval, func(_ context.Context) {
		s.logDebugStats()
	})
	ticker.Start()
	<-ctx.Done()
	ticker.Stop()
	return nil
}

// logDebugStats logs the current system state like memory stats, connected
// kiosks, etc.
func (s *debugStatsService) logDebugStats() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fields := []zap.Field{
		zap.Int("num_cpu", runtime.NumCPU()),
		zap.Int("num_goroutine", runtime.NumGoroutine()),
		zap.Uint64("memory_in_use_mb", memStats.Sys/1000/1000),
	}
	if s.kiosks != nil {
		stats := s.kiosks.Stats()
		fields = append(fields,
			zap.Int("kiosks", stats.Kiosks),
			zap.Int("sessions", stats.Sessions))
	}
	if s.config.IncludeStack {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, true)
		fields = append(fields, zap.ByteString("stack", buf[:stackSize]))
	}
	s.logger.Debug("debug system stats", fields...)
}
