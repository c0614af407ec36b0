// Package inject provides fakes whose behavior is set per test through function fields.
package inject

import (
	"context"

	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/vision/segmentation"
)

// Segmenter is an injected segmenter.
type Segmenter struct {
	segmentation.Segmenter
	SegmentFunc func(ctx context.Context, cloud *pointcloud.PointCloud, params segmentation.Parameters) (
		pointcloud.IndexSet, pointcloud.IndexSet, error)
}

// Segment calls the injected Segment or the real version.
func (s *Segmenter) Segment(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	params segmentation.Parameters,
) (pointcloud.IndexSet, pointcloud.IndexSet, error) {
	if s.SegmentFunc == nil {
		return s.Segmenter.Segment(ctx, cloud, params)
	}
	return s.SegmentFunc(ctx, cloud, params)
}
