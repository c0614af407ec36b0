package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// PassThrough returns a new cloud with exactly the points whose coordinate on axis lies in
// [lower, upper], in their original order. Use math.Inf for an unbounded side. The result keeps
// the frame and timestamp of the input.
func PassThrough(cloud *PointCloud, axis Axis, lower, upper float64) *PointCloud {
	if cloud.Size() == 0 || lower > upper {
		return NewEmpty(cloud.frame, cloud.stamp)
	}
	kept := make([]r3.Vector, 0, len(cloud.points))
	for _, p := range cloud.points {
		v := axis.Of(p)
		if v >= lower && v <= upper {
			kept = append(kept, p)
		}
	}
	return newOwned(cloud.frame, cloud.stamp, kept)
}

// Above returns the smallest float64 greater than x. It turns the inclusive bound of PassThrough
// into an exclusive one, so that the bands [l, m] and [Above(m), u] partition [l, u].
func Above(x float64) float64 {
	return math.Nextafter(x, math.Inf(1))
}
