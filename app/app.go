package app

import (
	"context"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/logging"
	"github.com/lefinal/memorama/store"
	"go.uber.org/zap"
)

// App is a complete memorama server instance.
type App struct {
	// config is the main config used for the App.
	config Config
}

// NewApp creates a new App with the given Config. Boot it with App.Boot.
func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// Boot sets everything up based on the set config and boots. It blocks until
// the given context.Context is done or a service fails.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	err := ValidateConfig(app.config)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "invalid config",
		}
	}
	// Setup logger.
	logger, logEntries := logging.NewLogger(ctx, logging.Config{
		StdoutLogLevel:     app.config.Log.StdoutLogLevel,
		HighPriorityOutput: app.config.Log.HighPriorityOutput,
		DebugOutput:        app.config.Log.DebugOutput,
		MaxSize:            app.config.Log.MaxSize,
		KeepDays:           app.config.Log.KeepDays,
		Publish:            app.config.Log.Publish && app.config.MQTTAddr.Valid,
	})
	defer func(loggerToSync *zap.Logger) {
		_ = loggerToSync.Sync()
	}(logger)
	// Boot.
	err = app.boot(ctx, logger, logEntries)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context, logger *zap.Logger, logEntries <-chan logging.LogEntry) error {
	logger.Info("booting up")
	// Connect database.
	logger.Debug("connecting to database")
	db, err := connectDB(ctx, logger.Named("db"), app.config.DBConn, app.config.MaxDBConnections)
	if err != nil {
		return errors.Wrap(err, "connect database", nil)
	}
	defer db.Close()
	mall := store.NewMall(logger.Named("store"), db)
	logger.Debug("database ready")
	if app.config.SeedSampleEvents {
		err = seedSampleEvents(ctx, logger, mall)
		if err != nil {
			return errors.Wrap(err, "seed sample events", nil)
		}
	}
	// Create services.
	services, err := createServices(ctx, app.config, logger, db, mall, logEntries)
	if err != nil {
		return errors.Wrap(err, "create services", nil)
	}
	logger.Info("setup completed. running services...")
	err = services.run(ctx, logger)
	if err != nil {
		return errors.Wrap(err, "run services", nil)
	}
	logger.Info("shut down")
	return nil
}

// seedSampleEvents creates the sample events if no active ones exist.
func seedSampleEvents(ctx context.Context, logger *zap.Logger, mall *store.Mall) error {
	activeEvents, err := mall.ActiveEvents(ctx)
	if err != nil {
		return errors.Wrap(err, "active events", nil)
	}
	if len(activeEvents) > 0 {
		logger.Debug("skipping sample events as active events exist",
			zap.Int("active_events", len(activeEvents)))
		return nil
	}
	err = mall.SeedSampleEvents(ctx)
	if err != nil {
		return errors.Wrap(err, "seed", nil)
	}
	logger.Info("seeded sample events")
	return nil
}
