package segmentation

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/obstacles/logging"
	"go.viam.com/obstacles/pointcloud"
)

// DefaultMinNeighbors is the smallest neighborhood, the point itself included, from which a
// normal is estimated.
const DefaultMinNeighbors = 3

// NormalSegmenter classifies points by the angle between their surface normal and up. Ground-like
// points are grouped into clusters and clusters smaller than the minimum size become obstacles.
type NormalSegmenter struct {
	// Up is the direction of the ground normal in the cloud's frame.
	Up r3.Vector
	// MinNeighbors is the smallest neighborhood a point needs to be classified.
	MinNeighbors int

	logger logging.Logger
}

// NewNormalSegmenter returns a segmenter for clouds whose z axis points up.
func NewNormalSegmenter(logger logging.Logger) *NormalSegmenter {
	return &NormalSegmenter{
		Up:           r3.Vector{Z: 1},
		MinNeighbors: DefaultMinNeighbors,
		logger:       logger,
	}
}

// Segment implements Segmenter. Both results are sorted ascending.
func (s *NormalSegmenter) Segment(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	params Parameters,
) (pointcloud.IndexSet, pointcloud.IndexSet, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::NormalSegmenter::Segment")
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	if s.Up.Norm2() == 0 {
		return nil, nil, errors.New("up direction must be non-zero")
	}
	if cloud.Size() == 0 {
		return pointcloud.IndexSet{}, pointcloud.IndexSet{}, nil
	}
	up := s.Up.Normalize()

	est, err := estimateNormals(ctx, cloud, params.NormalEstimationRadius, s.MinNeighbors)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	groundLike := make([]bool, cloud.Size())
	ground := pointcloud.IndexSet{}
	obstacles := pointcloud.IndexSet{}
	unclassified := 0
	for i, ok := range est.valid {
		if !ok {
			unclassified++
			continue
		}
		if angleToAxis(est.normals[i], up) <= params.GroundNormalAngle {
			groundLike[i] = true
		} else {
			obstacles = append(obstacles, i)
		}
	}

	// clusters connect ground-like points within the normal estimation radius
	clusters := growClusters(groundLike, func(dst []int, i int) []int {
		return est.kd.AppendRadiusNeighbors(dst, cloud.At(i), params.NormalEstimationRadius)
	})
	small := 0
	for _, cluster := range clusters {
		if len(cluster) < params.MinClusterSize {
			obstacles = append(obstacles, cluster...)
			small++
			continue
		}
		ground = append(ground, cluster...)
	}
	sort.Ints(ground)
	sort.Ints(obstacles)

	if s.logger != nil {
		s.logger.Debugw("segmented cloud",
			"points", cloud.Size(),
			"ground", len(ground),
			"obstacles", len(obstacles),
			"unclassified", unclassified,
			"small_clusters", small,
		)
	}
	return ground, obstacles, nil
}

// angleToAxis returns the angle between the line along n and axis, in [0, pi/2]. Normal sign is
// arbitrary so n and -n give the same angle.
func angleToAxis(n, axis r3.Vector) float64 {
	return math.Acos(math.Min(1, math.Abs(n.Dot(axis))))
}
