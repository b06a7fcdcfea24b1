// Package color provides the RGB type and the presence/countdown color
// mappings used by the decision engine.
package color

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// RGB is a 24-bit color. Channels are always in [0, 255]; use New to
// construct from unclamped values.
type RGB struct {
	R uint8 `yaml:"r" json:"r"`
	G uint8 `yaml:"g" json:"g"`
	B uint8 `yaml:"b" json:"b"`
}

// New builds an RGB clamping each channel to [0, 255].
func New(r, g, b int) RGB {
	return RGB{R: clamp(r), G: clamp(g), B: clamp(b)}
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Packed returns the color as a single integer (0xRRGGBB), the format
// the Govee control endpoint expects.
func (c RGB) Packed() int {
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}

// Hex returns the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Lerp interpolates linearly per channel between a and b.
// p is clamped to [0, 1]; p=0 yields a exactly, p=1 yields b exactly.
func Lerp(a, b RGB, p float64) RGB {
	if p <= 0 {
		return a
	}
	if p >= 1 {
		return b
	}
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-p) + float64(y)*p))
	}
	return RGB{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

// ParseHex parses "#RRGGBB" (leading '#' optional, case-insensitive).
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q: want RRGGBB", s)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(strings.ToUpper(s), "%02X%02X%02X", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return New(r, g, b), nil
}

// MustParseHex is ParseHex for compile-time constants; panics on error.
func MustParseHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// UnmarshalYAML accepts a "#RRGGBB" string.
func (c *RGB) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseHex(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
