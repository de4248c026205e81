package control

import "github.com/san-kum/pathloop/internal/dynamo"

var _ dynamo.Controller = (*LQR)(nil)

// LQR applies a fixed gain matrix around a reference state,
// u = -K(x - Target). The gains come from statespace.Regulator.
type LQR struct {
	K      [][]float64
	Target dynamo.State
}

func NewLQR(k [][]float64, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

// Compute ignores t: the gains are time invariant. State entries beyond
// the width of K are not fed back.
func (l *LQR) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(l.K))
	for i := range u {
		for j := range x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			if j < len(l.K[i]) {
				u[i] -= l.K[i][j] * (x[j] - target)
			}
		}
	}
	return u
}

// SetTarget replaces the reference the regulator drives toward.
func (l *LQR) SetTarget(r dynamo.State) {
	l.Target = r.Clone()
}
