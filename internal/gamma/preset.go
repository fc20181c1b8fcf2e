// Package gamma applies warmth presets to every connected display.
package gamma

import (
	"fmt"
	"strconv"
)

// Preset is a fixed triple of per-channel gamma multipliers
type Preset struct {
	Name  string  `json:"name"`
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

var (
	Neutral = Preset{Name: "neutral", Red: 1.0, Green: 1.0, Blue: 1.0}
	Night   = Preset{Name: "night", Red: 1.0, Green: 0.9, Blue: 0.8}
	Cloudy  = Preset{Name: "cloudy", Red: 1.0, Green: 0.95, Blue: 0.85}
)

func (p Preset) String() string {
	return p.Name
}

// Gamma returns the multiplier triple in xrandr's r:g:b form
func (p Preset) Gamma() string {
	return fmt.Sprintf("%s:%s:%s", formatChannel(p.Red), formatChannel(p.Green), formatChannel(p.Blue))
}

// Channels returns the multipliers as a slice
func (p Preset) Channels() []float64 {
	return []float64{p.Red, p.Green, p.Blue}
}

func formatChannel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
