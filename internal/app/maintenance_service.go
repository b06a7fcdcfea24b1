package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/config"
	"github.com/SargeyWargey/govee-status-light/internal/ledger"
)

// MaintenanceService runs periodic housekeeping: purging command
// ledger entries past the retention window so the history table stays
// bounded in a long-running daemon.
type MaintenanceService struct {
	cfg    *config.Config
	ledger *ledger.Ledger
}

// NewMaintenanceService creates the housekeeping loop.
func NewMaintenanceService(cfg *config.Config, l *ledger.Ledger) *MaintenanceService {
	return &MaintenanceService{cfg: cfg, ledger: l}
}

// Start begins housekeeping until the context is cancelled.
func (s *MaintenanceService) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *MaintenanceService) run(ctx context.Context) {
	interval := s.cfg.Database.PurgeInterval.Duration()
	log.Info().
		Dur("interval", interval).
		Dur("retention", s.cfg.Database.LedgerRetention.Duration()).
		Msg("Ledger maintenance started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Ledger maintenance stopping")
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *MaintenanceService) purge() {
	deleted, err := s.ledger.DeleteOlderThan(s.cfg.Database.LedgerRetention.Duration())
	if err != nil {
		log.Warn().Err(err).Msg("Ledger purge failed")
		return
	}
	if deleted > 0 {
		log.Debug().Int64("entries", deleted).Msg("Purged expired ledger entries")
	}
}
