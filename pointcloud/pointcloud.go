// Package pointcloud defines an ordered, immutable point cloud and the operations the detector
// runs over it: band filtering, index extraction, merging, rigid transformation and PCD I/O.
//
// Every operation returns a new cloud. A cloud never changes after construction, so clouds and
// their backing storage may be shared freely between pipeline stages.
package pointcloud

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns bounds that any point will widen.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MinZ: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
		MaxZ: math.Inf(-1),
	}
}

// Merge updates the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// PointCloud is an ordered sequence of points tagged with the frame they are expressed in and
// the time they were captured.
type PointCloud struct {
	frame  string
	stamp  time.Time
	points []r3.Vector
}

// New returns a cloud holding a copy of points.
func New(frame string, stamp time.Time, points []r3.Vector) *PointCloud {
	owned := make([]r3.Vector, len(points))
	copy(owned, points)
	return newOwned(frame, stamp, owned)
}

// NewEmpty returns a cloud with no points.
func NewEmpty(frame string, stamp time.Time) *PointCloud {
	return newOwned(frame, stamp, nil)
}

// newOwned takes ownership of points; callers must not retain them.
func newOwned(frame string, stamp time.Time, points []r3.Vector) *PointCloud {
	return &PointCloud{frame: frame, stamp: stamp, points: points}
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	if cloud == nil {
		return 0
	}
	return len(cloud.points)
}

// FrameID returns the name of the frame the points are expressed in.
func (cloud *PointCloud) FrameID() string {
	return cloud.frame
}

// Timestamp returns the capture time of the cloud.
func (cloud *PointCloud) Timestamp() time.Time {
	return cloud.stamp
}

// At returns the i'th point. It panics if i is out of range.
func (cloud *PointCloud) At(i int) r3.Vector {
	return cloud.points[i]
}

// Points returns a copy of the points in order.
func (cloud *PointCloud) Points() []r3.Vector {
	out := make([]r3.Vector, len(cloud.points))
	copy(out, cloud.points)
	return out
}

// Iterate calls fn for every point in order. If fn returns false, iteration stops.
func (cloud *PointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range cloud.points {
		if !fn(i, p) {
			return
		}
	}
}

// MetaData computes the bounds of the cloud.
func (cloud *PointCloud) MetaData() MetaData {
	meta := NewMetaData()
	for _, p := range cloud.points {
		meta.Merge(p)
	}
	return meta
}

// WithHeader returns a cloud with the same points under a different frame and timestamp. The
// points are shared, which is safe because clouds are immutable.
func (cloud *PointCloud) WithHeader(frame string, stamp time.Time) *PointCloud {
	return newOwned(frame, stamp, cloud.points)
}
