package statespace

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pathloop/internal/dynamo"
)

// ResponsePoint is the wheel-velocity loop after one period.
type ResponsePoint struct {
	Time     float64        // s
	Velocity dynamo.State   // true left and right wheel velocity, m/s
	Estimate dynamo.State   // observer estimate, m/s
	Voltage  dynamo.Control // applied left and right voltage, clamped
	Error    float64        // |target - estimate|
}

// StepResponse starts both wheels at rest and closes the loop for steps
// periods: ctrl sees the observer estimate, its output is clamped to the
// regulator's voltage limit and applied to the plant, and the observer
// corrects against the plant's encoder output. target is only used for
// the reported error.
func (c *TankDriveController) StepResponse(ctrl dynamo.Controller, target dynamo.State, steps int) ([]ResponsePoint, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps %d", ErrParameterBounds, steps)
	}
	n := c.plant.StateDim()
	if len(target) != n {
		return nil, fmt.Errorf("%w: target has %d values, want %d", dynamo.ErrDimensionMismatch, len(target), n)
	}

	dt := c.plant.Period.Seconds()
	x := make(dynamo.State, n)
	xhat := make(dynamo.State, n)
	out := make([]ResponsePoint, 0, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) * dt
		u := ctrl.Compute(xhat, t)
		if err := dynamo.CheckDims(c.plant, xhat, u); err != nil {
			return out, &dynamo.StepError{Step: i, Time: t, State: xhat.Clone(), Wrapped: err}
		}
		u = c.regulator.clamp(u)

		uv := vector(u)
		x = state(c.plant.Step(vector(x), uv))
		y := c.plant.Output(vector(x), uv)
		xhat = state(c.observer.Correct(c.observer.Predict(vector(xhat), uv), uv, y))
		if !x.IsValid() || !xhat.IsValid() {
			return out, &dynamo.StepError{Step: i, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		out = append(out, ResponsePoint{
			Time:     t + dt,
			Velocity: x,
			Estimate: xhat,
			Voltage:  u,
			Error:    target.Sub(xhat).Norm(),
		})
	}
	return out, nil
}

func (r *Regulator) clamp(u dynamo.Control) dynamo.Control {
	out := make(dynamo.Control, len(u))
	for i, v := range u {
		switch {
		case v > r.MaxVoltage:
			v = r.MaxVoltage
		case v < -r.MaxVoltage:
			v = -r.MaxVoltage
		}
		out[i] = v
	}
	return out
}

func vector(v []float64) *mat.VecDense {
	return mat.NewVecDense(len(v), append([]float64(nil), v...))
}

func state(v mat.Vector) dynamo.State {
	out := make(dynamo.State, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
