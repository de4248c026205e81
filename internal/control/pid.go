package control

import (
	"fmt"
	"math"

	"github.com/san-kum/pathloop/internal/dynamo"
)

var _ dynamo.Configurable = (*PID)(nil)

type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	// IntegralLimit bounds the magnitude of the accumulated integral when
	// positive.
	IntegralLimit float64

	integral float64
	prevErr  float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

// Calculate returns the output for one step of dt seconds. The first call
// after construction or Reset is proportional only.
func (p *PID) Calculate(measurement, setpoint, dt float64) float64 {
	return p.update(setpoint-measurement, dt)
}

func (p *PID) update(err, dt float64) float64 {
	if p.first || dt <= 0 {
		p.prevErr = err
		p.first = false
		return p.Kp * err
	}

	p.integral += err * dt
	if p.IntegralLimit > 0 {
		p.integral = math.Max(-p.IntegralLimit, math.Min(p.IntegralLimit, p.integral))
	}
	derivative := (err - p.prevErr) / dt
	p.prevErr = err

	return p.Kp*err + p.Ki*p.integral + p.Kd*derivative
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	return nil
}
