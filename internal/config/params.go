package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/pathloop/internal/dynamo"
)

var setters = map[string]func(*Config, float64){
	"lookahead":     func(c *Config, v float64) { c.Follower.Lookahead = v },
	"tolerance":     func(c *Config, v float64) { c.Follower.Tolerance = v },
	"epsilon":       func(c *Config, v float64) { c.Follower.Epsilon = v },
	"max_speed":     func(c *Config, v float64) { c.Follower.MaxSpeed = v },
	"period":        func(c *Config, v float64) { c.Loop.Period = v },
	"max_velocity":  func(c *Config, v float64) { c.Robot.MaxVelocity = v },
	"distance_p":    func(c *Config, v float64) { c.Robot.DistancePID.Kp = v },
	"distance_d":    func(c *Config, v float64) { c.Robot.DistancePID.Kd = v },
	"rotation_p":    func(c *Config, v float64) { c.Robot.RotationPID.Kp = v },
	"rotation_i":    func(c *Config, v float64) { c.Robot.RotationPID.Ki = v },
	"start_x":       func(c *Config, v float64) { c.Start.X = v },
	"start_y":       func(c *Config, v float64) { c.Start.Y = v },
	"start_heading": func(c *Config, v float64) { c.Start.Heading = v },
}

// ParamNames lists the names accepted by SetParam.
func ParamNames() []string {
	names := make([]string, 0, len(setters))
	for k := range setters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetParam sets one scalar by name. It does not validate the result.
func (c *Config) SetParam(name string, value float64) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("config: %w: %s", dynamo.ErrUnknownParam, name)
	}
	set(c, value)
	return nil
}

// SetParams applies params in name order and stops at the first unknown name.
func (c *Config) SetParams(params map[string]float64) error {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := c.SetParam(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}
