// Package segmentation splits a point cloud into ground and obstacle points from the local
// surface normal of each point.
package segmentation

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/obstacles/pointcloud"
)

// Parameters tune a single segmentation pass.
type Parameters struct {
	// NormalEstimationRadius is the neighborhood radius used to estimate normals and to grow
	// ground clusters, in the cloud's units.
	NormalEstimationRadius float64
	// GroundNormalAngle is the largest angle in radians between a point normal and up for the
	// point to be ground-like.
	GroundNormalAngle float64
	// MinClusterSize is the smallest ground-like cluster kept as ground.
	MinClusterSize int
}

// Validate returns an error if the parameters cannot drive a segmentation.
func (p Parameters) Validate() error {
	if math.IsNaN(p.NormalEstimationRadius) || math.IsInf(p.NormalEstimationRadius, 0) || p.NormalEstimationRadius <= 0 {
		return errors.Errorf("normal estimation radius must be a positive finite number, got %v", p.NormalEstimationRadius)
	}
	if math.IsNaN(p.GroundNormalAngle) || p.GroundNormalAngle < 0 || p.GroundNormalAngle > math.Pi/2 {
		return errors.Errorf("ground normal angle must be within [0, pi/2], got %v", p.GroundNormalAngle)
	}
	if p.MinClusterSize < 1 {
		return errors.Errorf("min cluster size must be at least 1, got %d", p.MinClusterSize)
	}
	return nil
}

// A Segmenter labels points of a cloud as ground or obstacle. The two returned index sets are
// disjoint and both index into cloud. Their union need not cover the cloud: points the
// segmenter cannot classify are left out of both.
type Segmenter interface {
	Segment(ctx context.Context, cloud *pointcloud.PointCloud, params Parameters) (ground, obstacles pointcloud.IndexSet, err error)
}
