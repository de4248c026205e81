// Package analysis characterizes a finished run from its samples.
//
//   - [Wobble]: dominant steering oscillation, from the spectrum of the
//     commanded wheel speed difference
//   - [Summarize]: distance driven, peak wheel speed and path efficiency
//
// A strong, narrow wobble peak usually means the rotation gains are too
// high for the loop period:
//
//	w, _ := analysis.Wobble(samples)
//	if w.Amplitude > 0.1 {
//	    // lower rotation_p
//	}
package analysis
