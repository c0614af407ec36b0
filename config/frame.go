package config

import (
	"github.com/golang/geo/r3"
	"go.viam.com/utils"

	"go.viam.com/obstacles/spatialmath"
)

// Translation is the translation of a frame relative to its parent, in meters.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation is the rotation of a frame relative to its parent as roll, pitch and yaw in
// degrees. Yaw is applied first, then pitch, then roll.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// FrameConfig is a static transform giving the pose of frame Name in frame Parent.
type FrameConfig struct {
	Parent      string      `json:"parent"`
	Name        string      `json:"name"`
	Translation Translation `json:"translation"`
	Orientation Orientation `json:"orientation"`
}

// Validate ensures all parts of the config are valid.
func (f *FrameConfig) Validate(path string) error {
	if f.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if f.Parent == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "parent")
	}
	return nil
}

// Pose returns the pose of the frame in its parent.
func (f *FrameConfig) Pose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: f.Translation.X, Y: f.Translation.Y, Z: f.Translation.Z},
		&spatialmath.EulerAngles{
			Roll:  spatialmath.DegToRad(f.Orientation.Roll),
			Pitch: spatialmath.DegToRad(f.Orientation.Pitch),
			Yaw:   spatialmath.DegToRad(f.Orientation.Yaw),
		},
	)
}
