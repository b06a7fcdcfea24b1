package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/auth"
	"github.com/SargeyWargey/govee-status-light/internal/config"
)

// App is the main application container that manages all services and
// their lifecycle. Construction wires everything by dependency
// injection so tests can swap collaborators.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Start starts all services. The provided context is used for cancellation.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.services.Start(a.ctx); err != nil {
		return err
	}

	log.Info().Msg("Status light daemon started")
	return nil
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// ClearDeviceTracking resets the locally tracked last-sent colors so
// every selected device is re-sent on the next recompute. Used by the
// --reset-state startup flag.
func (a *App) ClearDeviceTracking() {
	if a.services != nil {
		a.services.Registry.ClearTracking()
	}
}

// Auth exposes the token lifecycle manager for the interactive
// sign-in flow.
func (a *App) Auth() *auth.Manager {
	return a.services.Auth
}

// RedirectURL returns the configured OAuth redirect URL.
func (a *App) RedirectURL() string {
	return a.cfg.Graph.RedirectURL
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
