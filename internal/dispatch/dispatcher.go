// Package dispatch fans device-control commands out across devices,
// funneling every network call through the shared rate limiter so the
// device count never multiplies the request budget.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/device"
	"github.com/SargeyWargey/govee-status-light/internal/fault"
	"github.com/SargeyWargey/govee-status-light/internal/ledger"
	"github.com/SargeyWargey/govee-status-light/internal/ratelimit"
)

// Controller is the device-control sink; the Govee client implements it.
type Controller interface {
	SetColor(ctx context.Context, deviceID, sku string, rgb color.RGB) error
	SetBrightness(ctx context.Context, deviceID, sku string, level int) error
	SetPower(ctx context.Context, deviceID, sku string, on bool) error
}

// Target is one device and the color it should display.
type Target struct {
	Device device.Device
	Color  color.RGB
}

// Result is the device-local outcome of one command.
type Result struct {
	DeviceID string
	Err      error
}

// Dispatcher issues control commands for devices whose target color
// changed. Failures are per device and never abort siblings; there is
// no retry here because the next recompute re-derives the same target.
type Dispatcher struct {
	controller Controller
	limiter    *ratelimit.Limiter
	registry   *device.Registry
	ledger     *ledger.Ledger

	// Optional brightness applied alongside color changes, 0 = off.
	brightness int
}

// New creates a Dispatcher. ledger may be nil to skip history.
func New(controller Controller, limiter *ratelimit.Limiter, registry *device.Registry, l *ledger.Ledger, brightness int) *Dispatcher {
	return &Dispatcher{
		controller: controller,
		limiter:    limiter,
		registry:   registry,
		ledger:     l,
		brightness: brightness,
	}
}

// Apply sends one command per target whose color differs from the last
// color actually sent, concurrently, and waits for all outcomes.
func (d *Dispatcher) Apply(ctx context.Context, targets []Target) []Result {
	changed := make([]Target, 0, len(targets))
	for _, t := range targets {
		if !t.Device.HasCapability(device.CapabilityColor) {
			continue
		}
		if t.Device.LastSentColor != nil && *t.Device.LastSentColor == t.Color {
			continue
		}
		changed = append(changed, t)
	}
	if len(changed) == 0 {
		return nil
	}

	results := make([]Result, len(changed))
	var wg sync.WaitGroup
	for i, t := range changed {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			results[i] = Result{DeviceID: t.Device.ID, Err: d.send(ctx, t)}
		}(i, t)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) send(ctx context.Context, t Target) error {
	commandID := uuid.NewString()

	if err := d.limiter.Admit(ctx); err != nil {
		return err
	}

	err := d.controller.SetColor(ctx, t.Device.ID, t.Device.SKU, t.Color)
	if err == nil && d.brightness > 0 && t.Device.HasCapability(device.CapabilityBrightness) {
		if admitErr := d.limiter.Admit(ctx); admitErr == nil {
			if brightErr := d.controller.SetBrightness(ctx, t.Device.ID, t.Device.SKU, d.brightness); brightErr != nil {
				log.Warn().Err(brightErr).Str("device", t.Device.ID).Msg("Brightness command failed")
			}
		}
	}

	if err != nil {
		d.registry.RecordFailure(t.Device.ID)
		outcome := ledger.OutcomeFailed
		if errors.Is(err, fault.ErrRateLimited) {
			outcome = ledger.OutcomeRateLimited
		}
		d.record(commandID, t, outcome, err.Error())
		log.Warn().Err(err).Str("device", t.Device.ID).Str("color", t.Color.Hex()).Msg("Device command failed")
		return err
	}

	d.registry.RecordSuccess(t.Device.ID, t.Color)
	d.record(commandID, t, ledger.OutcomeSucceeded, "")
	log.Debug().Str("device", t.Device.ID).Str("color", t.Color.Hex()).Msg("Device color updated")
	return nil
}

// PowerOff turns the given devices off, still through the limiter.
func (d *Dispatcher) PowerOff(ctx context.Context, devices []device.Device) {
	var wg sync.WaitGroup
	for _, dev := range devices {
		if !dev.HasCapability(device.CapabilityPower) {
			continue
		}
		wg.Add(1)
		go func(dev device.Device) {
			defer wg.Done()
			if err := d.limiter.Admit(ctx); err != nil {
				return
			}
			if err := d.controller.SetPower(ctx, dev.ID, dev.SKU, false); err != nil {
				d.registry.RecordFailure(dev.ID)
				log.Warn().Err(err).Str("device", dev.ID).Msg("Power-off command failed")
			}
		}(dev)
	}
	wg.Wait()
}

func (d *Dispatcher) record(commandID string, t Target, outcome ledger.Outcome, errMsg string) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.Append(commandID, t.Device.ID, t.Color.Hex(), outcome, errMsg); err != nil {
		log.Warn().Err(err).Msg("Failed to record command in ledger")
	}
}
