package app

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lefinal/memorama/carousel"
	"github.com/lefinal/memorama/debugstats"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/kiosk"
	"github.com/lefinal/memorama/logging"
	"github.com/lefinal/memorama/logpublishsvc"
	"github.com/lefinal/memorama/portal"
	"github.com/lefinal/memorama/rankingsvc"
	"github.com/lefinal/memorama/registration"
	"github.com/lefinal/memorama/service"
	"github.com/lefinal/memorama/store"
	"github.com/lefinal/memorama/web_server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type services map[string]service.Service

// serviceFunc allows using ordinary functions as service.Service.
type serviceFunc func(ctx context.Context) error

// Run the function.
func (fn serviceFunc) Run(ctx context.Context) error {
	return fn(ctx)
}

// kioskConfig builds the kiosk.Config from the app Config.
func kioskConfig(appConfig Config) kiosk.Config {
	return kiosk.Config{
		Session: games.SessionConfig{
			PairCount:           appConfig.Game.PairCount,
			MismatchRevealDelay: appConfig.Game.MismatchRevealDelay,
			TickInterval:        appConfig.Game.TickInterval,
			SubmitTimeout:       appConfig.Game.SubmitTimeout,
		},
		Registration: registration.Config{
			Debounce:      appConfig.Game.RegistrationDebounce,
			LookupTimeout: appConfig.Game.LookupTimeout,
		},
		Carousel: carousel.SchedulerConfig{
			ImagePeriod:       appConfig.Carousel.ImagePeriod,
			StripWindow:       appConfig.Carousel.StripWindow,
			LeftVideos:        appConfig.Carousel.LeftVideos,
			RightVideos:       appConfig.Carousel.RightVideos,
			VideoRetries:      appConfig.Carousel.VideoRetries,
			VideoRetryBackoff: appConfig.Carousel.VideoRetryBackoff,
		},
		PlaybackTimeout: appConfig.Carousel.PlaybackTimeout,
	}
}

// createServices creates all services to run. MQTT related services are only
// created if an MQTT address is configured.
func createServices(ctx context.Context, appConfig Config, logger *zap.Logger, db *pgxpool.Pool, mall *store.Mall,
	logEntriesIn <-chan logging.LogEntry) (services, error) {
	services := make(services)
	rng, err := games.NewRand()
	if err != nil {
		return nil, errors.Wrap(err, "new rand", nil)
	}
	kioskDeps := kiosk.Deps{
		Events:      mall,
		Scores:      mall,
		Players:     mall,
		DeckBuilder: games.NewDeckBuilder(rng),
	}
	// MQTT.
	if appConfig.MQTTAddr.Valid {
		portalBase, err := portal.NewBase(logger.Named("portal"), portal.Config{
			MQTTAddr: appConfig.MQTTAddr.String,
			ClientID: appConfig.MQTTClientID,
		})
		if err != nil {
			return nil, errors.Wrap(err, "new portal base", nil)
		}
		services["mqtt"] = serviceFunc(portalBase.Open)
		ranking := rankingsvc.NewService(logger.Named("ranking"), portalBase.NewPortal("ranking"), mall)
		services["ranking"] = ranking
		kioskDeps.Listener = ranking
		if logEntriesIn != nil {
			// Avoid publishing logs regarding publishing logs.
			noPublishPortal := portalBase.NewPortal(logging.NoPublishLoggerName + ".log-publish")
			services["log-publish"] = logpublishsvc.New(logging.NoPublish(logger.Named("log-publish")),
				noPublishPortal, logEntriesIn)
		}
	}
	// Kiosks.
	hub := kiosk.NewHub(logger.Named("kiosk"), kioskConfig(appConfig), kioskDeps)
	// Kiosks live until the kiosk-hub service stops, which also happens if any
	// other service fails.
	kioskLifetime, stopKiosks := context.WithCancel(ctx)
	services["kiosk-hub"] = serviceFunc(func(ctx context.Context) error {
		<-ctx.Done()
		stopKiosks()
		hub.Wait()
		return nil
	})
	// Web server.
	webServer, err := web_server.NewWebServer(logger.Named("web-server"), web_server.Config{
		ServeAddr:    appConfig.ListenAddr,
		WriteTimeout: web_server.DefaultWriteTimeout,
		ReadTimeout:  web_server.DefaultReadTimeout,
	})
	if err != nil {
		stopKiosks()
		return nil, errors.Wrap(err, "new web server", nil)
	}
	webServer.PopulateRoutes(hub.HandleWS(kioskLifetime), mall, db)
	services["web-server"] = webServer
	// Debug stats service.
	s, err := debugstats.NewService(logger.Named("debug-stats"), debugstats.Config{
		IsEnabled: appConfig.Log.SystemDebugStatsInterval > 0,
		Interval:  appConfig.Log.SystemDebugStatsInterval,
	}, hub)
	if err != nil {
		stopKiosks()
		return nil, errors.Wrap(err, "new debug stats service", nil)
	}
	services["debug-stats"] = s
	return services, nil
}

func (s services) run(ctx context.Context, logger *zap.Logger) error {
	wg, lifetime := errgroup.WithContext(ctx)
	for name, serviceToRun := range s {
		name, serviceToRun := name, serviceToRun
		wg.Go(func() error {
			logger.Debug(fmt.Sprintf("service %s up", name))
			defer logger.Debug(fmt.Sprintf("service %s down", name))
			if err := serviceToRun.Run(lifetime); err != nil {
				return errors.Wrap(err, "run service", errors.Details{"service_name": name})
			}
			return nil
		})
	}
	return wg.Wait()
}
