// Package statespace builds linear state-space controllers for a tank
// drivetrain: the velocity plant, a steady-state Kalman observer and an LQR
// regulator.
//
// Everything is computed once in NewTankDriveController; the returned
// controller is immutable and its Observer and Regulator only work on
// vectors owned by the caller.
package statespace

import (
	"errors"
	"fmt"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pathloop/internal/control"
	"github.com/san-kum/pathloop/internal/dynamo"
)

// ErrParameterBounds is returned for non-positive physical parameters.
var ErrParameterBounds = fmt.Errorf("statespace: %w", dynamo.ErrParameterBounds)

type Options struct {
	WheelRadius float64       // m
	Period      time.Duration // discretization period
	// Regulator weights: tolerated wheel velocity error (m/s) and
	// maximum control effort (V).
	VelocityTolerance float64
	MaxVoltage        float64
	// Observer noise: model and encoder standard deviations (m/s).
	ProcessStdDev     float64
	MeasurementStdDev float64
}

func DefaultOptions() Options {
	return Options{
		WheelRadius:       3 * 0.0254,
		Period:            20 * time.Millisecond,
		VelocityTolerance: 1.0,
		MaxVoltage:        12.0,
		ProcessStdDev:     3.0,
		MeasurementStdDev: 0.01,
	}
}

type Regulator struct {
	K          *mat.Dense
	MaxVoltage float64
}

// Calculate returns u = K(r - x), each input clamped to the voltage limit.
func (r *Regulator) Calculate(x, ref mat.Vector) *mat.VecDense {
	var e, u mat.VecDense
	e.SubVec(ref, x)
	u.MulVec(r.K, &e)
	for i := 0; i < u.Len(); i++ {
		v := u.AtVec(i)
		if v > r.MaxVoltage {
			v = r.MaxVoltage
		} else if v < -r.MaxVoltage {
			v = -r.MaxVoltage
		}
		u.SetVec(i, v)
	}
	return &u
}

// Gains returns K row by row.
func (r *Regulator) Gains() [][]float64 {
	rows, cols := r.K.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = r.K.At(i, j)
		}
	}
	return out
}

// Controller returns an unclamped regulator driving toward target.
func (r *Regulator) Controller(target dynamo.State) *control.LQR {
	return control.NewLQR(r.Gains(), target.Clone())
}

// Observer is a steady-state Kalman filter.
type Observer struct {
	K     *mat.Dense
	plant *Plant
}

// Predict propagates the estimate one period: Ad xhat + Bd u.
func (o *Observer) Predict(xhat, u mat.Vector) *mat.VecDense {
	return o.plant.Step(xhat, u)
}

// Correct folds measurement y into the estimate.
func (o *Observer) Correct(xhat, u, y mat.Vector) *mat.VecDense {
	var innov, corr, out mat.VecDense
	innov.SubVec(y, o.plant.Output(xhat, u))
	corr.MulVec(o.K, &innov)
	out.AddVec(xhat, &corr)
	return &out
}

type TankDriveController struct {
	motor      DCMotor
	gearRatio  float64
	massKg     float64
	radiusM    float64
	trackWidth float64
	j          float64

	plant     *Plant
	observer  *Observer
	regulator *Regulator
}

// MomentOfInertia treats the robot as a uniform disc: J = m r^2 / 2.
func MomentOfInertia(massKg, radiusM float64) float64 {
	return 0.5 * massKg * radiusM * radiusM
}

// NewTankDriveController models the left and right wheel velocities of a
// drivetrain with motor on each side, robot mass massKg, robot radius
// radiusM, track width trackWidthM and gearRatio (motor turns per wheel turn).
func NewTankDriveController(motor DCMotor, massKg, radiusM, trackWidthM, gearRatio float64, opts Options) (*TankDriveController, error) {
	switch {
	case !motor.valid():
		return nil, fmt.Errorf("%w: motor %+v", ErrParameterBounds, motor)
	case massKg <= 0, radiusM <= 0, trackWidthM <= 0, gearRatio <= 0:
		return nil, fmt.Errorf("%w: mass %v, radius %v, track width %v, gear ratio %v",
			ErrParameterBounds, massKg, radiusM, trackWidthM, gearRatio)
	case opts.WheelRadius <= 0, opts.Period <= 0, opts.VelocityTolerance <= 0, opts.MaxVoltage <= 0,
		opts.ProcessStdDev <= 0, opts.MeasurementStdDev <= 0:
		return nil, fmt.Errorf("%w: options %+v", ErrParameterBounds, opts)
	}

	j := MomentOfInertia(massKg, radiusM)
	plant := drivetrainVelocityPlant(motor, massKg, opts.WheelRadius, trackWidthM/2, j, gearRatio, opts.Period)

	q := bryson(opts.VelocityTolerance, opts.VelocityTolerance)
	r := bryson(opts.MaxVoltage, opts.MaxVoltage)
	k, err := lqrGain(plant.Ad, plant.Bd, q, r)
	if err != nil {
		return nil, fmt.Errorf("statespace: regulator: %w", err)
	}

	l, err := kalmanGain(plant.Ad, plant.C,
		covariance(opts.ProcessStdDev, opts.ProcessStdDev),
		covariance(opts.MeasurementStdDev, opts.MeasurementStdDev))
	if err != nil {
		return nil, fmt.Errorf("statespace: observer: %w", err)
	}

	return &TankDriveController{
		motor:      motor,
		gearRatio:  gearRatio,
		massKg:     massKg,
		radiusM:    radiusM,
		trackWidth: trackWidthM,
		j:          j,
		plant:      plant,
		observer:   &Observer{K: l, plant: plant},
		regulator:  &Regulator{K: k, MaxVoltage: opts.MaxVoltage},
	}, nil
}

// drivetrainVelocityPlant is the two-state (left, right velocity) model
// driven by left and right voltage. r is the wheel radius and rb half the
// track width.
func drivetrainVelocityPlant(motor DCMotor, m, r, rb, j, g float64, period time.Duration) *Plant {
	c1 := -(g * g) * motor.Kt() / (motor.Kv() * motor.R() * r * r)
	c2 := g * motor.Kt() / (motor.R() * r)

	same := 1/m + rb*rb/j
	cross := 1/m - rb*rb/j

	a := mat.NewDense(2, 2, []float64{
		same * c1, cross * c1,
		cross * c1, same * c1,
	})
	b := mat.NewDense(2, 2, []float64{
		same * c2, cross * c2,
		cross * c2, same * c2,
	})
	return NewPlant(a, b, identity(2), mat.NewDense(2, 2, nil), period)
}

func lqrGain(a, b, q, r *mat.Dense) (*mat.Dense, error) {
	p, err := SolveDARE(a, b, q, r)
	if err != nil {
		return nil, err
	}
	var pa mat.Dense
	pa.Mul(p, a)
	return feedbackGain(b, r, p, &pa)
}

// kalmanGain solves the dual Riccati equation for the prior covariance P and
// returns P C' (C P C' + R)^-1.
func kalmanGain(a, c, q, r *mat.Dense) (*mat.Dense, error) {
	p, err := SolveDARE(a.T(), c.T(), q, r)
	if err != nil {
		return nil, err
	}
	var pct, cpct, s mat.Dense
	pct.Mul(p, c.T())
	cpct.Mul(c, &pct)
	s.Add(&cpct, r)

	// K S = P C'  <=>  S' K' = C P'
	var kt mat.Dense
	if err := kt.Solve(s.T(), pct.T()); err != nil {
		return nil, fmt.Errorf("statespace: singular innovation covariance: %w", err)
	}
	return mat.DenseCopyOf(kt.T()), nil
}

func (c *TankDriveController) Plant() *Plant { return c.plant }

func (c *TankDriveController) Observer() *Observer { return c.observer }

func (c *TankDriveController) Regulator() *Regulator { return c.regulator }

func (c *TankDriveController) MotorCharacteristics() DCMotor { return c.motor }

func (c *TankDriveController) GearRatio() float64 { return c.gearRatio }

// MomentOfInertia is the J used to build the plant.
func (c *TankDriveController) MomentOfInertia() float64 { return c.j }

var errNotSquare = errors.New("statespace: matrix is not square")

// SpectralRadius returns the largest eigenvalue magnitude of m. A discrete
// system is stable when it is below one.
func SpectralRadius(m mat.Matrix) (float64, error) {
	r, c := m.Dims()
	if r != c {
		return 0, errNotSquare
	}
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return 0, errors.New("statespace: eigen decomposition failed")
	}
	radius := 0.0
	for _, v := range eig.Values(nil) {
		if a := cmplx.Abs(v); a > radius {
			radius = a
		}
	}
	return radius, nil
}

// ClosedLoop returns Ad - Bd K.
func (c *TankDriveController) ClosedLoop() *mat.Dense {
	var bk, cl mat.Dense
	bk.Mul(c.plant.Bd, c.regulator.K)
	cl.Sub(c.plant.Ad, &bk)
	return &cl
}
