// Command interactive-probe connects to the interactive service with the
// given project credentials, prints the short code when one is required,
// and logs every event the SDK surfaces. It is the quickest way to check
// that a project version is reachable end to end.
//
// Usage:
//
//	interactive-probe --app-id=my-app --project-version=12345
//
// Environment variables (alternative to flags):
//
//	INTERACTIVE_APP_ID, INTERACTIVE_PROJECT_VERSION, INTERACTIVE_SHARE_CODE,
//	INTERACTIVE_API_BASE
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	interactive "github.com/streamspace-dev/interactive-go"
	"github.com/streamspace-dev/interactive-go/internal/logger"
)

func main() {
	appID := flag.String("app-id", os.Getenv("INTERACTIVE_APP_ID"), "OAuth client id for the game")
	projectVersion := flag.String("project-version", os.Getenv("INTERACTIVE_PROJECT_VERSION"), "Interactive project version id")
	shareCode := flag.String("share-code", os.Getenv("INTERACTIVE_SHARE_CODE"), "Share code for unpublished projects")
	apiBase := flag.String("api-base", os.Getenv("INTERACTIVE_API_BASE"), "REST base URL override")
	configFile := flag.String("config", "", "Host config file consulted when ids are unset")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	pretty := flag.Bool("pretty", true, "Pretty console logging")
	start := flag.Bool("start", true, "Send ready(true) automatically once initialized")

	flag.Parse()

	logger.Initialize(*logLevel, *pretty)
	log := logger.Log

	client := interactive.New(interactive.Config{
		AppID:                  *appID,
		ProjectVersionID:       *projectVersion,
		ShareCode:              *shareCode,
		APIBase:                *apiBase,
		ConfigFile:             *configFile,
		ShouldStartInteractive: *start,
	})

	client.OnError = func(ev interactive.ErrorEvent) {
		log.Warn().Int("code", ev.Code).Str("kind", ev.Kind.String()).Msg(ev.Message)
	}
	client.OnInteractivityStateChanged = func(ev interactive.StateChangedEvent) {
		log.Info().Str("from", ev.Previous.String()).Str("to", ev.State.String()).Msg("State changed")
		if ev.State == interactive.InteractivityShortCodeRequired {
			fmt.Printf("\n  Enter code %s to authorize this session\n\n", client.ShortCode())
		}
	}
	client.OnParticipantStateChanged = func(ev interactive.ParticipantStateChangedEvent) {
		log.Info().
			Str("username", ev.Participant.Username).
			Uint32("userID", ev.Participant.UserID).
			Str("state", ev.State.String()).
			Msg("Participant changed")
	}
	client.OnButtonEvent = func(ev interactive.ButtonEvent) {
		log.Info().
			Str("control", ev.ControlID).
			Bool("pressed", ev.Pressed).
			Str("username", ev.Participant.Username).
			Msg("Button input")
		if ev.TransactionID != "" {
			if err := client.CaptureTransaction(ev.TransactionID); err != nil {
				log.Warn().Err(err).Msg("Capture failed")
			}
		}
	}
	client.OnJoystickEvent = func(ev interactive.JoystickEvent) {
		log.Debug().
			Str("control", ev.ControlID).
			Float64("x", ev.X).
			Float64("y", ev.Y).
			Msg("Joystick input")
	}
	client.OnMessageEvent = func(ev interactive.MessageEvent) {
		log.Debug().Str("method", ev.Method).Msg("Custom server message")
	}

	if err := client.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			client.DoWork()
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			client.Dispose()
			return
		}
	}
}
