package statespace

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrNoConvergence is returned when the Riccati iteration does not settle.
var ErrNoConvergence = errors.New("statespace: riccati iteration did not converge")

const (
	riccatiMaxIter = 100000
	riccatiTol     = 1e-10
)

// SolveDARE iterates the discrete algebraic Riccati equation
//
//	P = A'PA - A'PB (R + B'PB)^-1 B'PA + Q
//
// from P = Q until successive iterates differ by less than riccatiTol.
func SolveDARE(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	p := mat.DenseCopyOf(q)
	for i := 0; i < riccatiMaxIter; i++ {
		next, err := riccatiStep(a, b, q, r, p)
		if err != nil {
			return nil, err
		}
		var diff mat.Dense
		diff.Sub(next, p)
		p = next
		if mat.Norm(&diff, 1) < riccatiTol*(1+mat.Norm(p, 1)) {
			return p, nil
		}
	}
	return nil, ErrNoConvergence
}

func riccatiStep(a, b, q, r, p mat.Matrix) (*mat.Dense, error) {
	var pa, atpa mat.Dense
	pa.Mul(p, a)
	atpa.Mul(a.T(), &pa)

	// gain = (R + B'PB)^-1 B'PA
	gain, err := feedbackGain(b, r, p, &pa)
	if err != nil {
		return nil, err
	}

	var btpa, corr mat.Dense
	btpa.Mul(b.T(), &pa)
	corr.Mul(btpa.T(), gain)

	var next mat.Dense
	next.Sub(&atpa, &corr)
	next.Add(&next, q)
	return &next, nil
}

// feedbackGain solves (R + B'PB) K = B'PA for K.
func feedbackGain(b, r, p, pa mat.Matrix) (*mat.Dense, error) {
	var pb, btpb, s, btpa mat.Dense
	pb.Mul(p, b)
	btpb.Mul(b.T(), &pb)
	s.Add(r, &btpb)
	btpa.Mul(b.T(), pa)

	var k mat.Dense
	if err := k.Solve(&s, &btpa); err != nil {
		return nil, fmt.Errorf("statespace: singular gain system: %w", err)
	}
	return &k, nil
}
