package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pathloop/internal/dynamo"
)

func TestPIDFirstCallIsProportional(t *testing.T) {
	pid := NewPID(0.478, 0, 0.008, 0)
	got := pid.Calculate(-2, 0, 0.02)
	if math.Abs(got-0.956) > 1e-12 {
		t.Errorf("Calculate = %v, want 0.956", got)
	}
}

func TestPIDCalculate(t *testing.T) {
	tests := []struct {
		name         string
		kp, ki, kd   float64
		measurements []float64
		dt           float64
		want         float64
	}{
		{"proportional", 2, 0, 0, []float64{1, 1}, 0.1, -2},
		{"integral accumulates", 0, 1, 0, []float64{1, 1, 1}, 0.5, -1},
		{"derivative of a step", 0, 0, 1, []float64{0, 1}, 0.5, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid := NewPID(tt.kp, tt.ki, tt.kd, 0)
			var got float64
			for _, m := range tt.measurements {
				got = pid.Calculate(m, 0, tt.dt)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPIDIntegralLimit(t *testing.T) {
	pid := NewPID(0, 1, 0, 0)
	pid.IntegralLimit = 0.5
	var got float64
	for i := 0; i < 100; i++ {
		got = pid.Calculate(0, 10, 0.1)
	}
	if got != 0.5 {
		t.Errorf("integral term = %v, want clamp at 0.5", got)
	}
}

func TestPIDReset(t *testing.T) {
	pid := NewPID(1, 1, 1, 0)
	pid.Calculate(3, 0, 0.1)
	pid.Calculate(2, 0, 0.1)
	pid.Reset()
	if got := pid.Calculate(1, 0, 0.1); got != -1 {
		t.Errorf("after Reset got %v, want proportional -1", got)
	}
}

func TestPIDParams(t *testing.T) {
	pid := NewPID(1, 2, 3, 4)
	if err := pid.SetParam("Kd", 0.5); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if pid.GetParams()["Kd"] != 0.5 {
		t.Error("Kd not updated")
	}
	if err := pid.SetParam("Kf", 1); !errors.Is(err, dynamo.ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}

func TestLQR(t *testing.T) {
	ctrl := NewLQR([][]float64{{1.0, 2.0}}, dynamo.State{0.0, 0.0})

	u := ctrl.Compute(dynamo.State{0.0, 0.0}, 0.0)
	if u[0] != 0 {
		t.Errorf("expected zero control at target, got %f", u[0])
	}

	u = ctrl.Compute(dynamo.State{1.0, 0.5}, 0.0)
	if u[0] != -2 {
		t.Errorf("expected -2, got %f", u[0])
	}

	ctrl.SetTarget(dynamo.State{1.0, 0.5})
	if u = ctrl.Compute(dynamo.State{1.0, 0.5}, 0.0); u[0] != 0 {
		t.Errorf("expected zero control at new target, got %f", u[0])
	}
}
