// Package logger sets up zerolog for the interactive SDK.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the SDK-wide base logger.
var Log zerolog.Logger

func init() {
	Log = log.With().Str("service", "interactive-go").Logger()
}

// Initialize sets up the global logger with configuration.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().
		Str("service", "interactive-go").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// component returns a child logger tagged with a component name.
func component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

// Transport creates a logger for websocket transport events.
func Transport() zerolog.Logger { return component("transport") }

// REST creates a logger for one-shot HTTP events.
func REST() zerolog.Logger { return component("rest") }

// Timers creates a logger for timer service events.
func Timers() zerolog.Logger { return component("timers") }

// Auth creates a logger for authentication events.
func Auth() zerolog.Logger { return component("auth") }

// Connection creates a logger for connection lifecycle events.
func Connection() zerolog.Logger { return component("connection") }

// Protocol creates a logger for protocol engine events.
func Protocol() zerolog.Logger { return component("protocol") }

// TokenStore creates a logger for token persistence events.
func TokenStore() zerolog.Logger { return component("tokenstore") }
