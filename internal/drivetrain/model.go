package drivetrain

import (
	"math"

	"github.com/san-kum/pathloop/internal/dynamo"
	"github.com/san-kum/pathloop/internal/geom"
)

// TankModel is differential drive kinematics.
// State: [x, y, theta], Control: [left wheel m/s, right wheel m/s]
type TankModel struct {
	TrackWidth float64
}

func NewTankModel(trackWidth float64) *TankModel {
	return &TankModel{TrackWidth: trackWidth}
}

func (m *TankModel) StateDim() int   { return 3 }
func (m *TankModel) ControlDim() int { return 2 }

func (m *TankModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	left, right := 0.0, 0.0
	if len(u) >= 2 {
		left, right = u[0], u[1]
	}
	v := (left + right) / 2
	omega := (right - left) / m.TrackWidth
	theta := x[2]
	return dynamo.State{v * math.Cos(theta), v * math.Sin(theta), omega}
}

func stateFromPose(p geom.Pose) dynamo.State {
	return dynamo.State{p.Translation.X, p.Translation.Y, p.Rotation.Radians()}
}

func poseFromState(x dynamo.State) geom.Pose {
	return geom.NewPose(x[0], x[1], geom.Rotation(geom.NormalizeAngle(x[2])))
}
