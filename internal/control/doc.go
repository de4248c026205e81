// Package control provides the feedback controllers used by the chassis.
//
//   - [PID]: Proportional-Integral-Derivative controller, used for the
//     distance and rotation loops of the simulated drivetrain
//   - [LQR]: applies a precomputed gain matrix, u = -K(x - r); the gains
//     come from the statespace package
//
// # Usage
//
//	rotation := control.NewPID(0.0088, 0.01, 0, 0)
//	turn := rotation.Calculate(headingErrDeg, 0, dt)
//
// LQR implements [dynamo.Controller]; PID implements [dynamo.Configurable]
// so the chassis can expose its gains.
package control
