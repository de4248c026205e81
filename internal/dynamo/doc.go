// Package dynamo defines the state-vector primitives shared by the simulated
// chassis and the controllers that drive it.
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper over a [System]
//   - [Controller]: feedback controller interface
//
// # Example
//
//	model := drivetrain.NewTankModel(0.66)
//	x := integrators.NewRK4().Step(model, x, dynamo.Control{vl, vr}, t, dt)
package dynamo
