// Package rules runs the optional user color-rules script. When a
// script is configured, its resolve function is called per device
// after the engine computes a target color and may override it by
// returning an {r, g, b} table; returning nil keeps the engine color.
package rules

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/SargeyWargey/govee-status-light/internal/color"
)

// Context is what the script sees for one resolution.
type Context struct {
	DeviceID   string
	DeviceName string
	Assignment string
	Presence   string
	Activity   string
	// Tracker view
	TrackerActive    bool
	MinutesRemaining float64
	Progress         float64
	// Engine output
	Color color.RGB
}

// Engine holds one Lua state guarded by a mutex; resolution volume is
// a handful of calls per recompute, so a single VM suffices.
type Engine struct {
	mu sync.Mutex
	ls *lua.LState
	fn *lua.LFunction
}

// Load reads and executes a rules script, capturing its global resolve
// function. Returns an error when the script is unreadable, fails to
// run, or defines no resolve function.
func Load(path string) (*Engine, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules script: %w", err)
	}

	ls := lua.NewState()
	if err := ls.DoString(string(src)); err != nil {
		ls.Close()
		return nil, fmt.Errorf("rules script failed: %w", err)
	}

	fn, ok := ls.GetGlobal("resolve").(*lua.LFunction)
	if !ok {
		ls.Close()
		return nil, fmt.Errorf("rules script defines no resolve function")
	}

	log.Info().Str("script", path).Msg("Loaded color rules script")
	return &Engine{ls: ls, fn: fn}, nil
}

// Resolve calls the script. Script errors are logged and swallowed so
// a broken rule never blanks a device: the engine color stands.
func (e *Engine) Resolve(rc Context) color.RGB {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ls.Push(e.fn)
	e.ls.Push(e.contextTable(rc))
	if err := e.ls.PCall(1, 1, nil); err != nil {
		log.Warn().Err(err).Str("device", rc.DeviceID).Msg("Rules script failed, keeping engine color")
		return rc.Color
	}

	result := e.ls.Get(-1)
	e.ls.Pop(1)

	tbl, ok := result.(*lua.LTable)
	if !ok {
		return rc.Color
	}
	return color.New(channel(tbl, "r"), channel(tbl, "g"), channel(tbl, "b"))
}

// Close releases the Lua state.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ls.Close()
}

func (e *Engine) contextTable(rc Context) *lua.LTable {
	tbl := e.ls.NewTable()
	e.ls.SetField(tbl, "device_id", lua.LString(rc.DeviceID))
	e.ls.SetField(tbl, "device_name", lua.LString(rc.DeviceName))
	e.ls.SetField(tbl, "assignment", lua.LString(rc.Assignment))
	e.ls.SetField(tbl, "presence", lua.LString(rc.Presence))
	e.ls.SetField(tbl, "activity", lua.LString(rc.Activity))
	e.ls.SetField(tbl, "tracker_active", lua.LBool(rc.TrackerActive))
	e.ls.SetField(tbl, "minutes_remaining", lua.LNumber(rc.MinutesRemaining))
	e.ls.SetField(tbl, "progress", lua.LNumber(rc.Progress))

	clr := e.ls.NewTable()
	e.ls.SetField(clr, "r", lua.LNumber(rc.Color.R))
	e.ls.SetField(clr, "g", lua.LNumber(rc.Color.G))
	e.ls.SetField(clr, "b", lua.LNumber(rc.Color.B))
	e.ls.SetField(tbl, "color", clr)
	return tbl
}

func channel(tbl *lua.LTable, key string) int {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}
