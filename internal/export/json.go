package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/storage"
)

type Data struct {
	Run       storage.RunMetadata `json:"run"`
	Waypoints []path.Waypoint     `json:"waypoints"`
	Samples   []Sample            `json:"samples"`
}

type Sample struct {
	Time    float64 `json:"time"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Theta   float64 `json:"theta"`
	GoalX   float64 `json:"goal_x"`
	GoalY   float64 `json:"goal_y"`
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
	Segment int     `json:"segment"`
}

// JSON writes a run as one indented document; theta is in degrees.
func JSON(w io.Writer, meta storage.RunMetadata, p path.Path, samples []command.Sample) error {
	data := Data{
		Run:       meta,
		Waypoints: p.Waypoints(),
		Samples:   make([]Sample, len(samples)),
	}
	for i, s := range samples {
		data.Samples[i] = Sample{
			Time:    s.Elapsed,
			X:       s.Pose.Translation.X,
			Y:       s.Pose.Translation.Y,
			Theta:   s.Pose.Rotation.Degrees(),
			GoalX:   s.Goal.X,
			GoalY:   s.Goal.Y,
			Left:    s.Left,
			Right:   s.Right,
			Segment: s.Progress.Segment,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
