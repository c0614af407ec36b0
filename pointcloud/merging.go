package pointcloud

import (
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/obstacles/spatialmath"
)

// Concat returns a new cloud with the points of every input cloud, in argument order, under the
// given frame and timestamp. Nil clouds are skipped.
func Concat(frame string, stamp time.Time, clouds ...*PointCloud) *PointCloud {
	total := 0
	for _, c := range clouds {
		total += c.Size()
	}
	out := make([]r3.Vector, 0, total)
	for _, c := range clouds {
		if c == nil {
			continue
		}
		out = append(out, c.points...)
	}
	return newOwned(frame, stamp, out)
}

// ApplyPose returns a new cloud with every point transformed by pose and tagged with frame.
// The rotation matrix is computed once for the whole cloud.
func ApplyPose(cloud *PointCloud, pose spatialmath.Pose, frame string) *PointCloud {
	rm := pose.Orientation().RotationMatrix()
	t := pose.Point()
	out := make([]r3.Vector, len(cloud.points))
	for i, p := range cloud.points {
		out[i] = rm.Mul(p).Add(t)
	}
	return newOwned(frame, cloud.stamp, out)
}
