// Package device owns the set of known controllable devices, their
// capabilities, and per-device assignment configuration.
package device

import (
	"sync"
	"time"

	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/kv"
)

// Capability is a typed device capability tag.
type Capability string

const (
	CapabilityColor      Capability = "color"
	CapabilityBrightness Capability = "brightness"
	CapabilityPower      Capability = "power"
)

// Assignment chooses which signal drives a device's color.
type Assignment string

const (
	// AssignmentPresence follows the presence signal only, including
	// the legacy countdown-stage overlay for busy events.
	AssignmentPresence Assignment = "presence"
	// AssignmentTracker follows the meeting countdown blend only.
	AssignmentTracker Assignment = "tracker"
	// AssignmentBoth follows the tracker while it is active and falls
	// back to presence otherwise.
	AssignmentBoth Assignment = "both"
)

// Device is one controllable light. Identity fields come from
// discovery; reachability, last-update time and last-sent color are
// tracked locally as commands succeed or fail.
type Device struct {
	ID           string       `json:"id"`
	SKU          string       `json:"sku"`
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`

	Reachable     bool       `json:"reachable"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
	LastSentColor *color.RGB `json:"last_sent_color,omitempty"`
}

// HasCapability reports whether the device carries the capability tag.
func (d Device) HasCapability(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// persisted is the slice of registry state that survives restarts.
type persisted struct {
	Assignments map[string]Assignment `json:"assignments"`
	Selected    map[string]bool       `json:"selected"`
}

const stateKey = "registry"

// Registry is the synchronized owner of devices, assignments, and the
// selection set. Assignments and selection persist via the devices kv
// bucket; the device list itself is rebuilt by discovery.
type Registry struct {
	mu          sync.RWMutex
	devices     map[string]*Device
	assignments map[string]Assignment
	selected    map[string]bool

	bucket kv.Bucket
}

// NewRegistry creates a registry, loading persisted assignments and
// selection from the bucket.
func NewRegistry(bucket kv.Bucket) (*Registry, error) {
	r := &Registry{
		devices:     make(map[string]*Device),
		assignments: make(map[string]Assignment),
		selected:    make(map[string]bool),
		bucket:      bucket,
	}

	var saved persisted
	ok, err := bucket.Get(stateKey, &saved)
	if err != nil {
		return nil, err
	}
	if ok {
		if saved.Assignments != nil {
			r.assignments = saved.Assignments
		}
		if saved.Selected != nil {
			r.selected = saved.Selected
		}
	}
	return r, nil
}

// ReplaceAll installs a freshly discovered device set, preserving the
// locally tracked fields of devices that were already known.
func (r *Registry) ReplaceAll(discovered []Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*Device, len(discovered))
	for _, d := range discovered {
		d := d
		if prev, ok := r.devices[d.ID]; ok {
			d.Reachable = prev.Reachable
			d.LastUpdatedAt = prev.LastUpdatedAt
			d.LastSentColor = prev.LastSentColor
		}
		next[d.ID] = &d
	}
	r.devices = next
}

// Get returns a copy of the device, or false if unknown.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// All returns copies of every known device.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out
}

// Selected returns copies of devices in the selection set.
func (r *Registry) Selected() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.devices))
	for id, d := range r.devices {
		if r.selected[id] {
			out = append(out, *d)
		}
	}
	return out
}

// Selection is one configured device: selected for control, with an
// explicit assignment when given.
type Selection struct {
	ID         string
	Assignment Assignment
}

// Configure replaces the selection set with the given entries and
// persists the result. Devices not listed are deselected; entries with
// an assignment also pin it, while the rest keep whatever assignment
// they had.
func (r *Registry) Configure(entries []Selection) error {
	r.mu.Lock()
	r.selected = make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		r.selected[e.ID] = true
		if e.Assignment != "" {
			r.assignments[e.ID] = e.Assignment
		}
	}
	r.mu.Unlock()
	return r.save()
}

// SetSelected adds or removes a device from the selection set.
func (r *Registry) SetSelected(id string, selected bool) error {
	r.mu.Lock()
	if selected {
		r.selected[id] = true
	} else {
		delete(r.selected, id)
	}
	r.mu.Unlock()
	return r.save()
}

// AssignmentFor returns the effective assignment for a device. Every
// device has exactly one: unset defaults to presence-only.
func (r *Registry) AssignmentFor(id string) Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.assignments[id]; ok {
		return a
	}
	return AssignmentPresence
}

// SetAssignment records an explicit assignment for a device.
func (r *Registry) SetAssignment(id string, a Assignment) error {
	r.mu.Lock()
	r.assignments[id] = a
	r.mu.Unlock()
	return r.save()
}

// RecordSuccess marks a command success: the device is reachable and
// its last-sent color becomes c.
func (r *Registry) RecordSuccess(id string, c color.RGB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[id]; ok {
		d.Reachable = true
		d.LastUpdatedAt = time.Now().UTC()
		d.LastSentColor = &c
	}
}

// RecordFailure marks a command failure: the device is unreachable.
// The last-sent color is kept so the next recompute retries the diff.
func (r *Registry) RecordFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[id]; ok {
		d.Reachable = false
		d.LastUpdatedAt = time.Now().UTC()
	}
}

// ClearTracking resets the locally tracked fields for all devices,
// forcing a full re-send on the next recompute.
func (r *Registry) ClearTracking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		d.LastSentColor = nil
	}
}

func (r *Registry) save() error {
	r.mu.RLock()
	saved := persisted{
		Assignments: make(map[string]Assignment, len(r.assignments)),
		Selected:    make(map[string]bool, len(r.selected)),
	}
	for id, a := range r.assignments {
		saved.Assignments[id] = a
	}
	for id, sel := range r.selected {
		saved.Selected[id] = sel
	}
	r.mu.RUnlock()
	return r.bucket.Store(stateKey, saved)
}
