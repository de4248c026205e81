package drivetrain

import (
	"fmt"
	"strings"
)

// Side selects which end of the chassis leads while driving.
type Side int

const (
	Front Side = iota
	Rear
)

func (s Side) String() string {
	switch s {
	case Front:
		return "front"
	case Rear:
		return "rear"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// ParseSide accepts "front" or "rear", case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "":
		return Front, nil
	case "rear", "back":
		return Rear, nil
	default:
		return Front, fmt.Errorf("drivetrain: unknown side %q", s)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
