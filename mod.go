// Package auctioneer defines the logger and the metric collectors shared by
// the packages of the module.
package auctioneer

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.InfoLevel

func init() {
	LoadLevel()
}

// LoadLevel sets the level of the logger from the environment variable. It
// can be called again once the environment has been populated from a file.
func LoadLevel() {
	lvl := os.Getenv(EnvLogLevel)

	var level zerolog.Level

	switch strings.ToLower(lvl) {
	case "error":
		level = zerolog.ErrorLevel
	case "warn":
		level = zerolog.WarnLevel
	case "info":
		level = zerolog.InfoLevel
	case "debug":
		level = zerolog.DebugLevel
	case "trace":
		level = zerolog.TraceLevel
	case "":
		level = defaultLevel
	default:
		level = zerolog.TraceLevel
	}

	Logger = Logger.Level(level)
}

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance. By default, it prints info
// level messages but it can be changed through a environment variable.
var Logger = zerolog.New(logout).Level(defaultLevel).
	With().Timestamp().Logger().
	With().Caller().Logger()

// PromCollectors exposes Prometheus collectors created by the packages. An
// initializer can register them to a Prometheus registry.
var PromCollectors []prometheus.Collector

// TeeLogger redirects the global logger to both the console and the given
// writer. The current level is preserved.
func TeeLogger(w io.Writer) {
	level := Logger.GetLevel()

	Logger = zerolog.New(zerolog.MultiLevelWriter(logout, w)).Level(level).
		With().Timestamp().Logger().
		With().Caller().Logger()
}
