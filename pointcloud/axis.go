package pointcloud

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Axis names one of the three coordinate axes.
type Axis int

const (
	// AxisX is the x axis, forward in a robot body frame.
	AxisX Axis = iota
	// AxisY is the y axis.
	AxisY
	// AxisZ is the z axis, up in a robot body frame.
	AxisZ
)

// AxisFromString parses "x", "y" or "z", ignoring case.
func AxisFromString(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return AxisX, errors.Errorf("unknown axis %q, expected one of x, y, z", s)
	}
}

// Of returns the coordinate of v along the axis.
func (a Axis) Of(v r3.Vector) float64 {
	switch a {
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	default:
		return v.X
	}
}

func (a Axis) String() string {
	switch a {
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "x"
	}
}
