package statespace

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Plant is a linear time-invariant system, continuous (A, B, C, D) and
// discretized at Period with a zero-order hold (Ad, Bd).
type Plant struct {
	A, B, C, D *mat.Dense
	Ad, Bd     *mat.Dense
	Period     time.Duration
}

func NewPlant(a, b, c, d *mat.Dense, period time.Duration) *Plant {
	ad, bd := Discretize(a, b, period.Seconds())
	return &Plant{A: a, B: b, C: c, D: d, Ad: ad, Bd: bd, Period: period}
}

func (p *Plant) States() int {
	n, _ := p.A.Dims()
	return n
}

func (p *Plant) Inputs() int {
	_, m := p.B.Dims()
	return m
}

func (p *Plant) Outputs() int {
	r, _ := p.C.Dims()
	return r
}

func (p *Plant) StateDim() int   { return p.States() }
func (p *Plant) ControlDim() int { return p.Inputs() }

// Step returns Ad x + Bd u.
func (p *Plant) Step(x, u mat.Vector) *mat.VecDense {
	var ax, bu mat.VecDense
	ax.MulVec(p.Ad, x)
	bu.MulVec(p.Bd, u)
	ax.AddVec(&ax, &bu)
	return &ax
}

// Output returns C x + D u.
func (p *Plant) Output(x, u mat.Vector) *mat.VecDense {
	var cx, du mat.VecDense
	cx.MulVec(p.C, x)
	du.MulVec(p.D, u)
	cx.AddVec(&cx, &du)
	return &cx
}

// Discretize converts continuous (A, B) with a zero-order hold of dt
// seconds, using the exponential of the block matrix [[A, B], [0, 0]] dt.
func Discretize(a, b *mat.Dense, dt float64) (ad, bd *mat.Dense) {
	n, _ := a.Dims()
	_, m := b.Dims()

	block := mat.NewDense(n+m, n+m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			block.Set(i, j, a.At(i, j)*dt)
		}
		for j := 0; j < m; j++ {
			block.Set(i, n+j, b.At(i, j)*dt)
		}
	}

	var e mat.Dense
	e.Exp(block)

	ad = mat.DenseCopyOf(e.Slice(0, n, 0, n))
	bd = mat.DenseCopyOf(e.Slice(0, n, n, n+m))
	return ad, bd
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// bryson builds diag(1/tol^2), so a state or input at its tolerance costs 1.
func bryson(tols ...float64) *mat.Dense {
	m := mat.NewDense(len(tols), len(tols), nil)
	for i, t := range tols {
		m.Set(i, i, 1/(t*t))
	}
	return m
}

// covariance builds diag(std^2).
func covariance(stds ...float64) *mat.Dense {
	m := mat.NewDense(len(stds), len(stds), nil)
	for i, s := range stds {
		m.Set(i, i, s*s)
	}
	return m
}
