package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/auth"
	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/eventbus"
	"github.com/SargeyWargey/govee-status-light/internal/graph"
	"github.com/SargeyWargey/govee-status-light/internal/observe"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
)

// PresenceService polls the presence signal on its own timer and
// publishes each snapshot most-recent-wins. Poll failures retain the
// previous snapshot so a transient outage never blanks the last-known
// state.
type PresenceService struct {
	cfg       *config.Config
	client    *graph.Client
	auth      *auth.Manager
	cell      *observe.Value[presence.Snapshot]
	bus       *eventbus.Bus
	lastError *observe.Value[string]
}

// NewPresenceService creates the presence poller.
func NewPresenceService(cfg *config.Config, client *graph.Client, authMgr *auth.Manager, cell *observe.Value[presence.Snapshot], bus *eventbus.Bus, lastError *observe.Value[string]) *PresenceService {
	return &PresenceService{
		cfg:       cfg,
		client:    client,
		auth:      authMgr,
		cell:      cell,
		bus:       bus,
		lastError: lastError,
	}
}

// Start begins polling until the context is cancelled.
func (s *PresenceService) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *PresenceService) run(ctx context.Context) {
	interval := s.cfg.Graph.PresenceInterval.Duration()
	log.Info().Dur("interval", interval).Msg("Presence poller started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Presence poller stopping")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *PresenceService) poll(ctx context.Context) {
	// Without a session there is nothing to poll; the token manager
	// would fail before any network call anyway.
	if s.auth.State() == auth.StateUnauthenticated {
		return
	}

	snapshot, err := s.client.GetPresence(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.lastError.Store("presence poll: " + err.Error())
		log.Warn().Err(err).Msg("Presence poll failed, keeping previous snapshot")
		return
	}

	prev, had := s.cell.Load()
	s.cell.Store(snapshot)
	s.bus.Publish(eventbus.Event{Type: eventbus.EventPresenceChanged})

	if !had || prev.State != snapshot.State {
		log.Info().Str("state", string(snapshot.State)).Str("activity", snapshot.Activity).Msg("Presence changed")
	}
}
