package integrators

import "github.com/san-kum/pathloop/internal/dynamo"

// Euler is the explicit first-order stepper. It is only accurate for small
// dt and exists for comparison runs.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	return x.Add(dyn.Derive(x, u, t).Scale(dt))
}

// New returns the integrator registered under name ("rk4" or "euler").
func New(name string) (dynamo.Integrator, bool) {
	switch name {
	case "rk4", "":
		return NewRK4(), true
	case "euler":
		return NewEuler(), true
	default:
		return nil, false
	}
}
