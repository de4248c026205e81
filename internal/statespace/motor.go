package statespace

import (
	"fmt"
	"math"
	"strings"
)

// DCMotor holds the datasheet characteristics of a gearbox worth of
// identical brushed or brushless motors. Derived constants cover all Count
// motors together.
type DCMotor struct {
	Name           string
	NominalVoltage float64 // V
	StallTorque    float64 // Nm, per motor
	StallCurrent   float64 // A, per motor
	FreeCurrent    float64 // A, per motor
	FreeSpeed      float64 // rad/s
	Count          int
}

func NewDCMotor(name string, nominalVoltage, stallTorque, stallCurrent, freeCurrent, freeSpeedRPM float64, count int) DCMotor {
	return DCMotor{
		Name:           name,
		NominalVoltage: nominalVoltage,
		StallTorque:    stallTorque,
		StallCurrent:   stallCurrent,
		FreeCurrent:    freeCurrent,
		FreeSpeed:      freeSpeedRPM * 2 * math.Pi / 60,
		Count:          count,
	}
}

func CIM(count int) DCMotor {
	return NewDCMotor("cim", 12, 2.42, 133, 2.7, 5310, count)
}

func NEO(count int) DCMotor {
	return NewDCMotor("neo", 12, 2.6, 105, 1.8, 5676, count)
}

func Falcon500(count int) DCMotor {
	return NewDCMotor("falcon500", 12, 4.69, 257, 1.5, 6380, count)
}

// MotorByName looks up "cim", "neo" or "falcon500".
func MotorByName(name string, count int) (DCMotor, error) {
	switch strings.ToLower(name) {
	case "cim":
		return CIM(count), nil
	case "neo":
		return NEO(count), nil
	case "falcon500", "falcon":
		return Falcon500(count), nil
	default:
		return DCMotor{}, fmt.Errorf("statespace: unknown motor %q", name)
	}
}

func (m DCMotor) valid() bool {
	return m.Count > 0 && m.NominalVoltage > 0 && m.StallTorque > 0 &&
		m.StallCurrent > 0 && m.FreeSpeed > 0 && m.FreeCurrent >= 0
}

// R is the winding resistance of the combined motors in ohms.
func (m DCMotor) R() float64 {
	return m.NominalVoltage / (m.StallCurrent * float64(m.Count))
}

// Kv is the velocity constant in rad/s per volt.
func (m DCMotor) Kv() float64 {
	return m.FreeSpeed / (m.NominalVoltage - m.R()*m.FreeCurrent*float64(m.Count))
}

// Kt is the torque constant in Nm per amp.
func (m DCMotor) Kt() float64 {
	return m.StallTorque / m.StallCurrent
}
