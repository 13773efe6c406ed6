package app

import (
	"github.com/caarlos0/env/v11"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap/zapcore"
	"reflect"
	"time"
)

// envPrefix is the prefix of all environment variables for Config.
const envPrefix = "MEMORAMA_"

// Config is the configuration needed in order to boot an App.
type Config struct {
	// DBConn is the connection string for the PostgreSQL database.
	DBConn string `env:"DB_CONN"`
	// MaxDBConnections is the maximum number of pooled database connections.
	MaxDBConnections int32 `env:"MAX_DB_CONNECTIONS" envDefault:"16"`
	// ListenAddr is the address, the app will listen for websocket and HTTP
	// connections on.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// MQTTAddr is the optional address of the MQTT server for publishing
	// rankings and logs.
	MQTTAddr nulls.String `env:"MQTT_ADDR"`
	// MQTTClientID is the client id to use for MQTT.
	MQTTClientID string `env:"MQTT_CLIENT_ID" envDefault:"memorama-server"`
	// SeedSampleEvents creates the sample events if no active events exist.
	SeedSampleEvents bool `env:"SEED_SAMPLE_EVENTS"`
	Log              LogConfig      `envPrefix:"LOG_"`
	Game             GameConfig     `envPrefix:"GAME_"`
	Carousel         CarouselConfig `envPrefix:"CAROUSEL_"`
}

// LogConfig is the config for logging.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for logging to stdout.
	StdoutLogLevel zapcore.Level `env:"STDOUT_LEVEL" envDefault:"info"`
	// HighPriorityOutput is the optional file for warnings and errors.
	HighPriorityOutput nulls.String `env:"HIGH_PRIORITY_OUTPUT"`
	// DebugOutput is the optional file for all log entries.
	DebugOutput nulls.String `env:"DEBUG_OUTPUT"`
	// MaxSize in megabytes of log files before rotation.
	MaxSize int `env:"MAX_SIZE" envDefault:"10"`
	// KeepDays is the number of days to keep rotated log files.
	KeepDays int `env:"KEEP_DAYS" envDefault:"7"`
	// Publish log entries over MQTT. Requires Config.MQTTAddr.
	Publish bool `env:"PUBLISH"`
	// SystemDebugStatsInterval is the interval for logging debug stats. Zero
	// disables them.
	SystemDebugStatsInterval time.Duration `env:"SYSTEM_DEBUG_STATS_INTERVAL"`
}

// GameConfig holds game tunables.
type GameConfig struct {
	PairCount            int           `env:"PAIR_COUNT" envDefault:"8"`
	MismatchRevealDelay  time.Duration `env:"MISMATCH_REVEAL_DELAY" envDefault:"800ms"`
	TickInterval         time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	SubmitTimeout        time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"10s"`
	RegistrationDebounce time.Duration `env:"REGISTRATION_DEBOUNCE" envDefault:"600ms"`
	LookupTimeout        time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"5s"`
}

// CarouselConfig holds carousel tunables and the video playlists.
type CarouselConfig struct {
	ImagePeriod       time.Duration `env:"IMAGE_PERIOD" envDefault:"4s"`
	StripWindow       int           `env:"STRIP_WINDOW" envDefault:"3"`
	LeftVideos        []string      `env:"LEFT_VIDEOS"`
	RightVideos       []string      `env:"RIGHT_VIDEOS"`
	VideoRetries      int           `env:"VIDEO_RETRIES" envDefault:"3"`
	VideoRetryBackoff time.Duration `env:"VIDEO_RETRY_BACKOFF" envDefault:"600ms"`
	PlaybackTimeout   time.Duration `env:"PLAYBACK_TIMEOUT" envDefault:"5s"`
}

// envParsers are custom parsers for types not supported by env.
var envParsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(nulls.String{}): func(v string) (interface{}, error) {
		if v == "" {
			return nulls.String{}, nil
		}
		return nulls.NewString(v), nil
	},
}

// LoadConfig parses the Config from the environment.
func LoadConfig() (Config, error) {
	return loadConfig(nil)
}

// loadConfig parses the Config from the given environment. If nil, the
// process environment is used.
func loadConfig(environment map[string]string) (Config, error) {
	var config Config
	err := env.ParseWithOptions(&config, env.Options{
		Prefix:      envPrefix,
		FuncMap:     envParsers,
		Environment: environment,
	})
	if err != nil {
		return Config{}, errors.FromErr("parse config from environment", errors.ErrBadRequest,
			errors.KindInvalidConfig, err, nil)
	}
	return config, nil
}

// ValidateConfig assures that the given Config is complete and contains
// reasonable values.
func ValidateConfig(config Config) error {
	invalid := func(message string, was interface{}) error {
		return errors.NewBadRequestError(errors.KindInvalidConfig, message, errors.Details{"was": was})
	}
	if config.DBConn == "" {
		return invalid("missing db connection", config.DBConn)
	}
	if config.MaxDBConnections < 1 {
		return invalid("max db connections must be positive", config.MaxDBConnections)
	}
	if config.ListenAddr == "" {
		return invalid("missing listen address", config.ListenAddr)
	}
	if config.MQTTAddr.Valid && config.MQTTClientID == "" {
		return invalid("missing mqtt client id", config.MQTTClientID)
	}
	if config.Log.Publish && !config.MQTTAddr.Valid {
		return invalid("log publishing requires mqtt address", config.MQTTAddr.String)
	}
	if config.Log.SystemDebugStatsInterval < 0 {
		return invalid("debug stats interval must not be negative", config.Log.SystemDebugStatsInterval.String())
	}
	if config.Game.PairCount < 1 {
		return invalid("pair count must be positive", config.Game.PairCount)
	}
	positiveDurations := map[string]time.Duration{
		"mismatch reveal delay": config.Game.MismatchRevealDelay,
		"tick interval":         config.Game.TickInterval,
		"submit timeout":        config.Game.SubmitTimeout,
		"registration debounce": config.Game.RegistrationDebounce,
		"lookup timeout":        config.Game.LookupTimeout,
		"image period":          config.Carousel.ImagePeriod,
		"video retry backoff":   config.Carousel.VideoRetryBackoff,
		"playback timeout":      config.Carousel.PlaybackTimeout,
	}
	for name, d := range positiveDurations {
		if d <= 0 {
			return invalid(name+" must be positive", d.String())
		}
	}
	if config.Carousel.StripWindow < 1 {
		return invalid("strip window must be positive", config.Carousel.StripWindow)
	}
	if config.Carousel.VideoRetries < 0 {
		return invalid("video retries must not be negative", config.Carousel.VideoRetries)
	}
	return nil
}
