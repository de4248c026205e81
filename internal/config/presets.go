package config

import (
	"math"
	"sort"

	"github.com/san-kum/pathloop/internal/drivetrain"
	"github.com/san-kum/pathloop/internal/path"
)

var Presets = map[string]func() *Config{
	"line": func() *Config {
		cfg := DefaultConfig()
		cfg.Waypoints = []path.Waypoint{{X: 0, Y: 0}, {X: 3, Y: 0}}
		return cfg
	},
	"square": func() *Config {
		cfg := DefaultConfig()
		cfg.Follower.Lookahead = 0.3
		cfg.Waypoints = []path.Waypoint{
			{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0.2},
		}
		cfg.Timeout = 60
		return cfg
	},
	"s_curve": func() *Config {
		cfg := DefaultConfig()
		cfg.Follower.Lookahead = 0.4
		cfg.Waypoints = sCurve(3, 1, 24)
		cfg.Timeout = 45
		return cfg
	},
	"single": func() *Config {
		cfg := DefaultConfig()
		cfg.Waypoints = []path.Waypoint{{X: 1, Y: 0.5}}
		return cfg
	},
	"reverse": func() *Config {
		cfg := DefaultConfig()
		cfg.Follower.FrontSide = drivetrain.Rear
		cfg.Follower.MaxSpeed = 0.6
		cfg.Waypoints = []path.Waypoint{{X: 0, Y: 0}, {X: -2, Y: 0}, {X: -2.5, Y: 0.5}}
		return cfg
	},
}

// sCurve samples y = amplitude * sin(2 pi x / length) from 0 to length.
func sCurve(length, amplitude float64, n int) []path.Waypoint {
	pts := make([]path.Waypoint, n+1)
	for i := range pts {
		x := length * float64(i) / float64(n)
		pts[i] = path.Waypoint{X: x, Y: amplitude * math.Sin(2*math.Pi*x/length)}
	}
	return pts
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := build()
	cfg.Name = name
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
