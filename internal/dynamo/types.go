package dynamo

import (
	"fmt"
	"math"
)

// State is a system state vector. Arithmetic helpers return new vectors and
// treat missing entries of the shorter operand as zero.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control is an input vector, e.g. left and right wheel speeds or voltages.
type Control []float64

// Dimensioned reports the vector sizes a model expects.
type Dimensioned interface {
	StateDim() int
	ControlDim() int
}

// System is a continuous model dX/dt = f(X, u, t).
type System interface {
	Dimensioned
	Derive(x State, u Control, t float64) State
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Controller maps a state to the input that drives it toward a reference.
type Controller interface {
	Compute(x State, t float64) Control
}

// Configurable is implemented by components that expose tunable gains.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// CheckDims reports whether x and u fit sys.
func CheckDims(sys Dimensioned, x State, u Control) error {
	if len(x) != sys.StateDim() {
		return fmt.Errorf("%w: state has %d values, want %d", ErrDimensionMismatch, len(x), sys.StateDim())
	}
	if len(u) != sys.ControlDim() {
		return fmt.Errorf("%w: control has %d values, want %d", ErrDimensionMismatch, len(u), sys.ControlDim())
	}
	return nil
}
