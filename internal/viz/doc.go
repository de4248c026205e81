// Package viz draws a running path-follow session in the terminal.
//
// The field is rendered on a braille [Canvas]: the path as a polyline, the
// robot's trail as dots, its pose as a short heading stroke and the current
// lookahead goal as a cross. A side panel shows the command state, progress
// and a live cross-track error graph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - Change simulation speed
//	T     - Cycle color themes
//	?     - Toggle help
//	Q     - Interrupt the command and quit
package viz
