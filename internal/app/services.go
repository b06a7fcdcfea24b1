package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/auth"
	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/db"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/dispatch"
	"github.com/SargeyWargey/govee-status-light/internal/eventbus"
	"github.com/SargeyWargey/govee-status-light/internal/govee"
	"github.com/SargeyWargey/govee-status-light/internal/graph"
	"github.com/SargeyWargey/govee-status-light/internal/kv"
	"github.com/SargeyWargey/govee-status-light/internal/ledger"
	"github.com/SargeyWargey/govee-status-light/internal/observe"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
	"github.com/SargeyWargey/govee-status-light/internal/ratelimit"
	"github.com/SargeyWargey/govee-status-light/internal/rules"
	"github.com/SargeyWargey/govee-status-light/internal/tracker"
)

// Services is a container for all application services. It manages
// initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	KV     *kv.Manager
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// Signal state: most-recent-wins snapshot cells
	Presence  *observe.Value[presence.Snapshot]
	Calendar  *observe.Value[calendar.Snapshot]
	AuthState *observe.Value[auth.State]
	LastError *observe.Value[string]

	// Clients and domain services
	Auth       *auth.Manager
	Graph      *graph.Client
	Govee      *govee.Client
	Registry   *device.Registry
	Limiter    *ratelimit.Limiter
	Dispatcher *dispatch.Dispatcher
	Rules      *rules.Engine

	// Background services
	PresencePoller *PresenceService
	CalendarPoller *CalendarService
	Discovery      *DiscoveryService
	Engine         *EngineService
	Maintenance    *MaintenanceService
	Status         *StatusService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.KV = kv.NewManager(database.DB)
	s.Ledger = ledger.New(database.DB)
	s.Bus = eventbus.New()

	s.Presence = observe.NewValue[presence.Snapshot]()
	s.Calendar = observe.NewValue[calendar.Snapshot]()
	s.AuthState = observe.NewValue[auth.State]()
	s.LastError = observe.NewValue[string]()

	exchanger, err := auth.NewOAuth2Exchanger(
		cfg.Graph.ClientID,
		cfg.Graph.Tenant,
		cfg.Graph.RedirectURL,
		cfg.Graph.Scopes,
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Auth, err = auth.NewManager(exchanger, s.KV.Bucket(kv.BucketAuth), cfg.Graph.TokenBuffer.Duration())
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Auth.OnChange(func(state auth.State) {
		s.AuthState.Store(state)
		s.Bus.Publish(eventbus.Event{Type: eventbus.EventAuthChanged})
	})
	s.AuthState.Store(s.Auth.State())

	s.Graph = graph.NewClient(s.Auth, cfg.Graph.Timeout.Duration(), cfg.Graph.RequestsPerSec)

	s.Govee, err = govee.NewClient(cfg.Govee.APIKey, cfg.Govee.Timeout.Duration())
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Registry, err = device.NewRegistry(s.KV.Bucket(kv.BucketDevices))
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := seedRegistry(s.Registry, cfg.Govee.Devices); err != nil {
		s.Close()
		return nil, err
	}

	s.Limiter = ratelimit.New(cfg.Govee.RateMaxRequests, cfg.Govee.RateWindow.Duration())
	s.Dispatcher = dispatch.New(s.Govee, s.Limiter, s.Registry, s.Ledger, cfg.Govee.Brightness)

	if cfg.RulesScript != "" {
		s.Rules, err = rules.Load(cfg.RulesScript)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	trackerCfg := loadTrackerConfig(s.KV.Bucket(kv.BucketTracker), cfg.Tracker)

	s.PresencePoller = NewPresenceService(cfg, s.Graph, s.Auth, s.Presence, s.Bus, s.LastError)
	s.CalendarPoller = NewCalendarService(cfg, s.Graph, s.Auth, s.Calendar, s.Bus, s.LastError)
	s.Discovery = NewDiscoveryService(cfg, s.Govee, s.Registry, s.Bus, s.LastError)
	s.Engine = NewEngineService(cfg, trackerCfg, s.Registry, s.Dispatcher, s.Presence, s.Calendar, s.Bus, s.Rules)
	s.Maintenance = NewMaintenanceService(cfg, s.Ledger)
	s.Status = NewStatusService(cfg, s)

	return s, nil
}

// seedRegistry applies the configured device selection. The config
// file is authoritative for which devices are controlled; without it a
// fresh install would select nothing and the engine would sit idle.
func seedRegistry(registry *device.Registry, devices []config.DeviceConfig) error {
	if len(devices) == 0 {
		return nil
	}
	entries := make([]device.Selection, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, device.Selection{
			ID:         d.ID,
			Assignment: device.Assignment(d.Assignment),
		})
	}
	return registry.Configure(entries)
}

// loadTrackerConfig prefers the persisted user-mutable tracker config,
// seeding the bucket from the config file on first run.
func loadTrackerConfig(bucket kv.Bucket, fromFile tracker.Config) tracker.Config {
	var saved tracker.Config
	ok, err := bucket.Get("config", &saved)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load tracker config, using file config")
		return fromFile
	}
	if ok {
		return saved
	}
	if err := bucket.Store("config", fromFile); err != nil {
		log.Warn().Err(err).Msg("Failed to seed tracker config")
	}
	return fromFile
}

// Start starts all background services.
func (s *Services) Start(ctx context.Context) error {
	s.PresencePoller.Start(ctx)
	s.CalendarPoller.Start(ctx)
	s.Discovery.Start(ctx)
	s.Engine.Start(ctx)
	s.Maintenance.Start(ctx)
	s.Status.Start(ctx)
	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Rules != nil {
		s.Rules.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

func (s *Services) shutdownTimeout() time.Duration {
	if s.cfg == nil {
		return 5 * time.Second
	}
	return s.cfg.GetShutdownTimeout()
}
