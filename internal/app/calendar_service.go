package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/auth"
	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/eventbus"
	"github.com/SargeyWargey/govee-status-light/internal/graph"
	"github.com/SargeyWargey/govee-status-light/internal/observe"
)

// CalendarService polls the calendar view on its own timer,
// independent of the presence poller; the two may complete in any
// relative order.
type CalendarService struct {
	cfg       *config.Config
	client    *graph.Client
	auth      *auth.Manager
	cell      *observe.Value[calendar.Snapshot]
	bus       *eventbus.Bus
	lastError *observe.Value[string]
}

// NewCalendarService creates the calendar poller.
func NewCalendarService(cfg *config.Config, client *graph.Client, authMgr *auth.Manager, cell *observe.Value[calendar.Snapshot], bus *eventbus.Bus, lastError *observe.Value[string]) *CalendarService {
	return &CalendarService{
		cfg:       cfg,
		client:    client,
		auth:      authMgr,
		cell:      cell,
		bus:       bus,
		lastError: lastError,
	}
}

// Start begins polling until the context is cancelled.
func (s *CalendarService) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *CalendarService) run(ctx context.Context) {
	interval := s.cfg.Graph.CalendarInterval.Duration()
	log.Info().Dur("interval", interval).Msg("Calendar poller started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Calendar poller stopping")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *CalendarService) poll(ctx context.Context) {
	if s.auth.State() == auth.StateUnauthenticated {
		return
	}

	snapshot, err := s.client.CalendarView(ctx, s.cfg.Graph.CalendarWindow.Duration())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.lastError.Store("calendar poll: " + err.Error())
		log.Warn().Err(err).Msg("Calendar poll failed, keeping previous snapshot")
		return
	}

	s.cell.Store(snapshot)
	s.bus.Publish(eventbus.Event{Type: eventbus.EventCalendarChanged})
	log.Debug().Int("events", len(snapshot.Events)).Msg("Calendar refreshed")
}
