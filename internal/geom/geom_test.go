package geom

import (
	"math"
	"testing"
)

func TestEpsilonEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b Translation
		eps  Translation
		want bool
	}{
		{"same point", Translation{1, 1}, Translation{1, 1}, Translation{0, 0}, true},
		{"inside box", Translation{1.05, 0.95}, Translation{1, 1}, Translation{0.1, 0.1}, true},
		{"x outside", Translation{1.2, 1}, Translation{1, 1}, Translation{0.1, 0.1}, false},
		{"y outside", Translation{1, 0.8}, Translation{1, 1}, Translation{0.1, 0.1}, false},
		// corner of the box is farther than eps radially but still inside axis-wise
		{"corner", Translation{1.09, 1.09}, Translation{1, 1}, Translation{0.1, 0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EpsilonEquals(tt.a, tt.b, tt.eps); got != tt.want {
				t.Errorf("EpsilonEquals() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4 * math.Pi, 0},
	}

	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPoseToLocal(t *testing.T) {
	p := NewPose(1, 1, Rotation(math.Pi/2))
	local := p.ToLocal(Translation{1, 2})
	if math.Abs(local.X-1) > 1e-9 || math.Abs(local.Y) > 1e-9 {
		t.Errorf("expected point straight ahead, got %v", local)
	}

	local = p.ToLocal(Translation{0, 1})
	if math.Abs(local.X) > 1e-9 || math.Abs(local.Y-1) > 1e-9 {
		t.Errorf("expected point to the left, got %v", local)
	}
}

func TestTranslationArithmetic(t *testing.T) {
	a := Translation{3, 4}
	if a.Norm() != 5 {
		t.Errorf("Norm() = %v, want 5", a.Norm())
	}
	if d := a.Distance(Translation{0, 0}); d != 5 {
		t.Errorf("Distance() = %v, want 5", d)
	}
	if s := a.Scale(2); s.X != 6 || s.Y != 8 {
		t.Errorf("Scale() = %v", s)
	}
	if !a.IsValid() || (Translation{math.NaN(), 0}).IsValid() {
		t.Error("IsValid() misreports finite coordinates")
	}
}
