package command

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a lifecycle call does not fit
	// the current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("command: invalid lifecycle transition")

	// ErrConfigLocked is returned by Configure once Initialize has been called.
	ErrConfigLocked = errors.New("command: configuration is locked after initialization")

	ErrInvalidOptions = errors.New("command: invalid options")
)

// State is the lifecycle position of a following task. States only move
// forward: Idle, Initializing, Running, then Completed or Interrupted.
type State int

const (
	Idle State = iota
	Initializing
	Running
	Completed
	Interrupted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Interrupted
}

func (s State) canMoveTo(next State) bool {
	switch s {
	case Idle:
		return next == Initializing
	case Initializing:
		return next == Running || next.Terminal()
	case Running:
		return next.Terminal()
	default:
		return false
	}
}
