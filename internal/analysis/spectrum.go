package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pathloop/internal/command"
)

// ErrTooFewSamples is returned when a run is too short to analyze.
var ErrTooFewSamples = errors.New("analysis: need at least 8 samples")

// WobbleReport describes the strongest oscillation in the steering signal.
type WobbleReport struct {
	// Frequency in Hz of the strongest non-DC component.
	Frequency float64
	// Amplitude of that component in m/s of wheel speed difference.
	Amplitude float64
	// SampleRate in Hz, inferred from sample timestamps.
	SampleRate float64
}

// Wobble finds the dominant oscillation of right minus left wheel speed.
// The signal mean is removed first so steady turning does not register.
func Wobble(samples []command.Sample) (WobbleReport, error) {
	n := len(samples)
	if n < 8 {
		return WobbleReport{}, ErrTooFewSamples
	}
	dt := (samples[n-1].Elapsed - samples[0].Elapsed) / float64(n-1)
	if !(dt > 0) {
		return WobbleReport{}, errors.New("analysis: sample timestamps do not increase")
	}

	signal := make([]float64, n)
	for i, s := range samples {
		signal[i] = s.Right - s.Left
	}
	floats.AddConst(-stat.Mean(signal, nil), signal)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, signal)

	best := 0
	for i := 1; i < len(coeff); i++ {
		if best == 0 || cmplx.Abs(coeff[i]) > cmplx.Abs(coeff[best]) {
			best = i
		}
	}
	return WobbleReport{
		Frequency:  fft.Freq(best) / dt,
		Amplitude:  2 * cmplx.Abs(coeff[best]) / float64(n),
		SampleRate: 1 / dt,
	}, nil
}

// Summary is a handful of whole-run numbers.
type Summary struct {
	Distance float64
	// Efficiency is straight-line start-to-end distance over distance driven.
	Efficiency  float64
	PeakWheel   float64
	MeanHeading float64
	HeadingStd  float64
}

func Summarize(samples []command.Sample) Summary {
	var s Summary
	if len(samples) == 0 {
		return s
	}
	headings := make([]float64, len(samples))
	for i, smp := range samples {
		if i > 0 {
			s.Distance += smp.Pose.Translation.Distance(samples[i-1].Pose.Translation)
		}
		s.PeakWheel = math.Max(s.PeakWheel, math.Max(math.Abs(smp.Left), math.Abs(smp.Right)))
		headings[i] = smp.Pose.Rotation.Degrees()
	}
	if s.Distance > 0 {
		direct := samples[len(samples)-1].Pose.Translation.Distance(samples[0].Pose.Translation)
		s.Efficiency = direct / s.Distance
	}
	s.MeanHeading, s.HeadingStd = stat.MeanStdDev(headings, nil)
	return s
}
