package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/eventbus"
	"github.com/SargeyWargey/govee-status-light/internal/govee"
	"github.com/SargeyWargey/govee-status-light/internal/observe"
)

// DiscoveryService periodically re-discovers the controllable device
// set and installs it in the registry, preserving local tracking.
type DiscoveryService struct {
	cfg       *config.Config
	client    *govee.Client
	registry  *device.Registry
	bus       *eventbus.Bus
	lastError *observe.Value[string]
}

// NewDiscoveryService creates the device discovery loop.
func NewDiscoveryService(cfg *config.Config, client *govee.Client, registry *device.Registry, bus *eventbus.Bus, lastError *observe.Value[string]) *DiscoveryService {
	return &DiscoveryService{
		cfg:       cfg,
		client:    client,
		registry:  registry,
		bus:       bus,
		lastError: lastError,
	}
}

// Start begins discovery until the context is cancelled.
func (s *DiscoveryService) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *DiscoveryService) run(ctx context.Context) {
	interval := s.cfg.Govee.DiscoveryInterval.Duration()
	log.Info().Dur("interval", interval).Msg("Device discovery started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.discover(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Device discovery stopping")
			return
		case <-ticker.C:
			s.discover(ctx)
		}
	}
}

func (s *DiscoveryService) discover(ctx context.Context) {
	devices, err := s.client.Devices(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.lastError.Store("device discovery: " + err.Error())
		log.Warn().Err(err).Msg("Device discovery failed, keeping known devices")
		return
	}

	s.registry.ReplaceAll(devices)
	s.bus.Publish(eventbus.Event{Type: eventbus.EventDevicesChanged})
	log.Debug().Int("devices", len(devices)).Msg("Device set refreshed")
}
