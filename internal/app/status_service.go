package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/calendar"
	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/ledger"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
	"github.com/SargeyWargey/govee-status-light/internal/tracker"
)

// StatusService serves the read-only observable surface: current
// presence, tracker state, auth state, per-device last-known color and
// reachability, and the most recent error. The presentation layer
// consumes this; nothing here mutates engine state.
type StatusService struct {
	cfg      *config.Config
	services *Services
	server   *http.Server
}

// NewStatusService creates a new StatusService.
func NewStatusService(cfg *config.Config, services *Services) *StatusService {
	return &StatusService{
		cfg:      cfg,
		services: services,
	}
}

// Start begins the status server if enabled.
func (s *StatusService) Start(ctx context.Context) {
	if !s.cfg.Status.Enabled {
		return
	}

	go s.run(ctx)
}

type statusPayload struct {
	AuthState string             `json:"auth_state"`
	Presence  *presence.Snapshot `json:"presence,omitempty"`
	Tracker   tracker.State      `json:"tracker"`
	Devices   []deviceStatus     `json:"devices"`
	Events    []calendar.Event   `json:"upcoming_events"`
	LastError string             `json:"last_error,omitempty"`
	Commands  []*ledger.Entry    `json:"recent_commands,omitempty"`
	Time      time.Time          `json:"time"`
}

type deviceStatus struct {
	device.Device
	Assignment device.Assignment `json:"assignment"`
}

func (s *StatusService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Status.Host, s.cfg.Status.Port)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		payload := s.snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Warn().Err(err).Msg("Failed to encode status payload")
		}
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Info().Str("addr", addr).Msg("Starting status server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Status server error")
	}
}

func (s *StatusService) snapshot() statusPayload {
	payload := statusPayload{
		AuthState: string(s.services.Auth.State()),
		Tracker:   s.services.Engine.TrackerState(),
		Time:      time.Now().UTC(),
	}

	if snap, ok := s.services.Presence.Load(); ok {
		payload.Presence = &snap
	}
	if events, ok := s.services.Calendar.Load(); ok {
		payload.Events = events.Events
	}
	if msg, ok := s.services.LastError.Load(); ok {
		payload.LastError = msg
	}

	for _, dev := range s.services.Registry.All() {
		payload.Devices = append(payload.Devices, deviceStatus{
			Device:     dev,
			Assignment: s.services.Registry.AssignmentFor(dev.ID),
		})
	}

	if commands, err := s.services.Ledger.Tail(20); err == nil {
		payload.Commands = commands
	}

	return payload
}
