package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/dispatch"
	"github.com/SargeyWargey/govee-status-light/internal/eventbus"
	"github.com/SargeyWargey/govee-status-light/internal/observe"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
	"github.com/SargeyWargey/govee-status-light/internal/resolver"
	"github.com/SargeyWargey/govee-status-light/internal/rules"
	"github.com/SargeyWargey/govee-status-light/internal/tracker"
)

// EngineService runs the recompute loop: on every published change
// and on a low-frequency safety timer it re-derives the target color
// for every selected device and dispatches the diffs. Recomputation is
// cheap and pure, so running against a slightly-stale snapshot is fine;
// the next trigger repairs any skew.
type EngineService struct {
	cfg        *config.Config
	trackerCfg tracker.Config
	mapping    color.Mapping

	registry   *device.Registry
	dispatcher *dispatch.Dispatcher
	presences  *observe.Value[presence.Snapshot]
	calendars  *observe.Value[calendar.Snapshot]
	bus        *eventbus.Bus
	rules      *rules.Engine

	trackerState *observe.Value[tracker.State]

	// Coalesced trigger: one pending recompute at most.
	trigger chan struct{}

	wasOffline bool
}

// NewEngineService creates the decision engine loop.
func NewEngineService(cfg *config.Config, trackerCfg tracker.Config, registry *device.Registry, dispatcher *dispatch.Dispatcher, presences *observe.Value[presence.Snapshot], calendars *observe.Value[calendar.Snapshot], bus *eventbus.Bus, rulesEngine *rules.Engine) *EngineService {
	return &EngineService{
		cfg:          cfg,
		trackerCfg:   trackerCfg,
		mapping:      cfg.ColorMapping(),
		registry:     registry,
		dispatcher:   dispatcher,
		presences:    presences,
		calendars:    calendars,
		bus:          bus,
		rules:        rulesEngine,
		trackerState: observe.NewValue[tracker.State](),
		trigger:      make(chan struct{}, 1),
	}
}

// TrackerState exposes the latest derived countdown state for the
// status surface.
func (s *EngineService) TrackerState() tracker.State {
	state, _ := s.trackerState.Load()
	return state
}

// Trigger requests a recompute; triggers coalesce.
func (s *EngineService) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
		// Already pending
	}
}

// Start subscribes to change events and begins the recompute loop.
func (s *EngineService) Start(ctx context.Context) {
	onChange := func(eventbus.Event) { s.Trigger() }
	s.bus.Subscribe(eventbus.EventPresenceChanged, onChange)
	s.bus.Subscribe(eventbus.EventCalendarChanged, onChange)
	s.bus.Subscribe(eventbus.EventDevicesChanged, onChange)
	s.bus.Subscribe(eventbus.EventAuthChanged, onChange)

	go s.run(ctx)
}

func (s *EngineService) run(ctx context.Context) {
	interval := s.cfg.Engine.SafetyInterval.Duration()
	log.Info().Dur("safety_interval", interval).Msg("Decision engine started")

	// Safety timer: catches missed notifications and advances the
	// countdown blend between calendar polls.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Decision engine stopping")
			return
		case <-s.trigger:
			s.recompute(ctx)
		case <-ticker.C:
			s.recompute(ctx)
		}
	}
}

func (s *EngineService) recompute(ctx context.Context) {
	now := time.Now()

	var presencePtr *presence.Snapshot
	if snap, ok := s.presences.Load(); ok {
		presencePtr = &snap
	}
	events, _ := s.calendars.Load()

	trackerState := tracker.Compute(s.trackerCfg, events, now)
	s.trackerState.Store(trackerState)

	selected := s.registry.Selected()
	if len(selected) == 0 {
		return
	}

	// Offline edge: optionally power selected devices off instead of
	// painting them with the offline color.
	if s.cfg.Engine.TurnOffWhenOffline && presencePtr != nil {
		offline := presencePtr.State == presence.StateOffline
		if offline && !s.wasOffline {
			log.Info().Msg("Presence went offline, turning selected devices off")
			s.dispatcher.PowerOff(ctx, selected)
			s.registry.ClearTracking()
			s.wasOffline = true
			return
		}
		if offline {
			return
		}
		s.wasOffline = false
	}

	targets := make([]dispatch.Target, 0, len(selected))
	for _, dev := range selected {
		assignment := s.registry.AssignmentFor(dev.ID)

		// Devices assigned to the tracker but not opted into it in the
		// tracker config behave as if the tracker were inactive.
		cfg := s.trackerCfg
		state := trackerState
		if !cfg.AppliesTo(dev.ID) && assignment != device.AssignmentPresence {
			state = tracker.State{}
		}

		target := resolver.TargetColor(resolver.Input{
			Assignment:   assignment,
			Presence:     presencePtr,
			Events:       events,
			TrackerCfg:   cfg,
			TrackerState: state,
			Mapping:      s.mapping,
			Now:          now,
		})

		if s.rules != nil {
			target = s.applyRules(dev, assignment, presencePtr, state, target)
		}

		targets = append(targets, dispatch.Target{Device: dev, Color: target})
	}

	results := s.dispatcher.Apply(ctx, targets)
	for _, r := range results {
		if r.Err != nil && ctx.Err() == nil {
			log.Debug().Str("device", r.DeviceID).Err(r.Err).Msg("Command outcome")
		}
	}
}

func (s *EngineService) applyRules(dev device.Device, assignment device.Assignment, snap *presence.Snapshot, state tracker.State, target color.RGB) color.RGB {
	rc := rules.Context{
		DeviceID:         dev.ID,
		DeviceName:       dev.Name,
		Assignment:       string(assignment),
		TrackerActive:    state.Active,
		MinutesRemaining: state.MinutesRemaining,
		Progress:         state.Progress,
		Color:            target,
	}
	if snap != nil {
		rc.Presence = string(snap.State)
		rc.Activity = snap.Activity
	}
	return s.rules.Resolve(rc)
}
