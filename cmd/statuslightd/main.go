package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/app"
	"github.com/SargeyWargey/govee-status-light/internal/auth"
	"github.com/SargeyWargey/govee-status-light/internal/config"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	login := flag.Bool("login", false, "Run the interactive sign-in flow before starting")
	resetState := flag.Bool("reset-state", false, "Clear tracked device colors on startup (forces a full re-send)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.Level, cfg.Log.UseJSON, cfg.Log.Colors)

	log.Info().Str("config", configPath).Msg("Starting statuslightd")

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	if *resetState {
		log.Info().Msg("Clearing tracked device colors (--reset-state)")
		application.ClearDeviceTracking()
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	if *login {
		if err := signIn(ctx, application); err != nil {
			log.Fatal().Err(err).Msg("Interactive sign-in failed")
		}
	}

	// Start the application
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// signIn drives the interactive authorization-code flow: print the
// URL, wait for the local callback, exchange the code.
func signIn(ctx context.Context, application *app.App) error {
	manager := application.Auth()
	state := uuid.NewString()

	log.Info().Str("url", manager.AuthCodeURL(state)).Msg("Open this URL in a browser to sign in")

	code, err := auth.WaitForCode(ctx, application.RedirectURL())
	if err != nil {
		return err
	}
	return manager.Authenticate(ctx, code)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
