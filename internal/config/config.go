package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SargeyWargey/govee-status-light/internal/color"
	"github.com/SargeyWargey/govee-status-light/internal/presence"
	"github.com/SargeyWargey/govee-status-light/internal/tracker"
)

// Config represents the application configuration
type Config struct {
	Graph           GraphConfig    `yaml:"graph"`
	Govee           GoveeConfig    `yaml:"govee"`
	Tracker         tracker.Config `yaml:"tracker"`
	Colors          ColorsConfig   `yaml:"colors"`
	Engine          EngineConfig   `yaml:"engine"`
	Database        DatabaseConfig `yaml:"database"`
	Status          StatusConfig   `yaml:"status"`
	Log             LogConfig      `yaml:"log"`
	RulesScript     string         `yaml:"rules_script"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
}

// GraphConfig contains the Microsoft Graph connection settings
type GraphConfig struct {
	ClientID    string   `yaml:"client_id"`
	Tenant      string   `yaml:"tenant"`
	RedirectURL string   `yaml:"redirect_url"`
	Scopes      []string `yaml:"scopes"`

	PresenceInterval Duration `yaml:"presence_interval"` // Presence poll period (default: 15s)
	CalendarInterval Duration `yaml:"calendar_interval"` // Calendar poll period (default: 60s)
	CalendarWindow   Duration `yaml:"calendar_window"`   // How far ahead to fetch events (default: 24h)
	Timeout          Duration `yaml:"timeout"`           // HTTP timeout for Graph requests
	RequestsPerSec   float64  `yaml:"requests_per_sec"`  // Courtesy throttle on Graph calls
	TokenBuffer      Duration `yaml:"token_buffer"`      // Refresh tokens this long before expiry
}

// GoveeConfig contains the Govee device API settings
type GoveeConfig struct {
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`

	// Vendor budget: 10 requests per 60 seconds
	RateMaxRequests int      `yaml:"rate_max_requests"`
	RateWindow      Duration `yaml:"rate_window"`

	DiscoveryInterval Duration `yaml:"discovery_interval"` // Device re-discovery period (default: 10m)
	Brightness        int      `yaml:"brightness"`         // Optional brightness 1-100 sent with color changes, 0 = leave alone

	// Devices to control. Only listed devices are driven; the file is
	// authoritative on every startup.
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig selects one device for control and optionally pins
// which signal drives it.
type DeviceConfig struct {
	ID         string `yaml:"id"`
	Assignment string `yaml:"assignment"` // presence (default), tracker, or both
}

// ColorsConfig lets users recolor presence states and countdown stages
type ColorsConfig struct {
	Presence  map[string]color.RGB `yaml:"presence"`
	Countdown map[string]color.RGB `yaml:"countdown"`
}

// EngineConfig contains decision-engine settings
type EngineConfig struct {
	SafetyInterval     Duration `yaml:"safety_interval"`       // Full recompute period guarding missed notifications
	TurnOffWhenOffline bool     `yaml:"turn_off_when_offline"` // Power selected devices off when presence goes offline
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path            string   `yaml:"path"`
	LedgerRetention Duration `yaml:"ledger_retention"` // Purge command history older than this (default: 168h)
	PurgeInterval   Duration `yaml:"purge_interval"`   // How often retention runs (default: 1h)
}

// StatusConfig contains the status/health HTTP server settings
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./statuslight.sqlite"
	}
	if cfg.Database.LedgerRetention == 0 {
		cfg.Database.LedgerRetention = Duration(7 * 24 * time.Hour)
	}
	if cfg.Database.PurgeInterval == 0 {
		cfg.Database.PurgeInterval = Duration(time.Hour)
	}

	// Graph defaults
	if cfg.Graph.Tenant == "" {
		cfg.Graph.Tenant = "common"
	}
	if len(cfg.Graph.Scopes) == 0 {
		cfg.Graph.Scopes = []string{"offline_access", "Presence.Read", "Calendars.Read"}
	}
	if cfg.Graph.RedirectURL == "" {
		cfg.Graph.RedirectURL = "http://localhost:8347/callback"
	}
	if cfg.Graph.PresenceInterval == 0 {
		cfg.Graph.PresenceInterval = Duration(15 * time.Second)
	}
	if cfg.Graph.CalendarInterval == 0 {
		cfg.Graph.CalendarInterval = Duration(60 * time.Second)
	}
	if cfg.Graph.CalendarWindow == 0 {
		cfg.Graph.CalendarWindow = Duration(24 * time.Hour)
	}
	if cfg.Graph.Timeout == 0 {
		cfg.Graph.Timeout = Duration(30 * time.Second)
	}
	if cfg.Graph.RequestsPerSec == 0 {
		cfg.Graph.RequestsPerSec = 4
	}
	if cfg.Graph.TokenBuffer == 0 {
		cfg.Graph.TokenBuffer = Duration(300 * time.Second)
	}

	// Govee defaults
	if cfg.Govee.Timeout == 0 {
		cfg.Govee.Timeout = Duration(15 * time.Second)
	}
	if cfg.Govee.RateMaxRequests == 0 {
		cfg.Govee.RateMaxRequests = 10
	}
	if cfg.Govee.RateWindow == 0 {
		cfg.Govee.RateWindow = Duration(60 * time.Second)
	}
	if cfg.Govee.DiscoveryInterval == 0 {
		cfg.Govee.DiscoveryInterval = Duration(10 * time.Minute)
	}

	// Tracker defaults
	if cfg.Tracker.WindowMinutes == 0 {
		cfg.Tracker.WindowMinutes = 15
	}
	zero := color.RGB{}
	if cfg.Tracker.IdleColor == zero {
		cfg.Tracker.IdleColor = color.New(0, 255, 0)
	}
	if cfg.Tracker.MeetingColor == zero {
		cfg.Tracker.MeetingColor = color.New(255, 0, 0)
	}

	// Engine defaults
	if cfg.Engine.SafetyInterval == 0 {
		cfg.Engine.SafetyInterval = Duration(60 * time.Second)
	}

	// Status server defaults
	if cfg.Status.Port == 0 {
		cfg.Status.Port = 9090
	}
	if cfg.Status.Host == "" {
		cfg.Status.Host = "127.0.0.1"
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// ColorMapping builds the effective mapping: defaults overlaid with
// any user-configured entries.
func (c *Config) ColorMapping() color.Mapping {
	user := color.Mapping{
		Presence:  make(map[presence.State]color.RGB),
		Countdown: make(map[color.CountdownStage]color.RGB),
	}
	for name, rgb := range c.Colors.Presence {
		user.Presence[presence.State(name)] = rgb
	}
	for name, rgb := range c.Colors.Countdown {
		user.Countdown[color.CountdownStage(name)] = rgb
	}
	return color.Merge(user)
}

// GetShutdownTimeout returns the shutdown timeout with its default.
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout.Duration()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
