package obstacles

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/vision/segmentation"
)

// Strategy selects how the floor band is segmented.
type Strategy int

const (
	// StrategySimple takes the floor band as ground and the obstacle band as obstacles.
	StrategySimple Strategy = iota
	// StrategySingleZone segments the whole floor band in one pass and moves what is not ground
	// into the obstacles.
	StrategySingleZone
	// StrategyDistanceZoned segments the near and far parts of the floor band separately, with
	// wider tolerances far away, and ignores obstacles inside the blind zone.
	StrategyDistanceZoned
)

// StrategyFromConfig picks the strategy for cfg. Simple segmentation wins over distance zoning.
func StrategyFromConfig(cfg *Config) Strategy {
	switch {
	case cfg.SimpleSegmentation:
		return StrategySimple
	case cfg.OptimizeForCloseObject:
		return StrategyDistanceZoned
	default:
		return StrategySingleZone
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategySimple:
		return "simple"
	case StrategySingleZone:
		return "single_zone"
	case StrategyDistanceZoned:
		return "distance_zoned"
	default:
		return "unknown"
	}
}

// Classify splits cloud, already expressed in the robot frame, into ground and obstacle clouds
// following the strategy cfg selects. Both results keep the frame and timestamp of cloud.
func Classify(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	cfg *Config,
	segmenter segmentation.Segmenter,
) (ground, obstacles *pointcloud.PointCloud, err error) {
	ctx, span := trace.StartSpan(ctx, "obstacles::Classify")
	defer span.End()

	frame, stamp := cloud.FrameID(), cloud.Timestamp()
	floor := pointcloud.PassThrough(cloud, pointcloud.AxisZ, math.Inf(-1), cfg.MaxFloorHeight)
	band := pointcloud.PassThrough(cloud, pointcloud.AxisZ, pointcloud.Above(cfg.MaxFloorHeight), cfg.MaxObstaclesHeight)

	switch StrategyFromConfig(cfg) {
	case StrategySimple:
		return floor, band, nil

	case StrategySingleZone:
		g, o, err := segmentZone(ctx, segmenter, floor, cfg.segmentationParameters())
		if err != nil {
			return nil, nil, err
		}
		return g, pointcloud.Concat(frame, stamp, band, o), nil

	case StrategyDistanceZoned:
		fwd := cfg.forwardAxis()
		near := pointcloud.PassThrough(floor, fwd, math.Inf(-1), cfg.NearDistance)
		far := pointcloud.PassThrough(floor, fwd, pointcloud.Above(cfg.NearDistance), math.Inf(1))
		band = pointcloud.PassThrough(band, fwd, pointcloud.Above(cfg.BlindZoneDistance), math.Inf(1))

		nearGround, nearObstacles, err := segmentZone(ctx, segmenter, near, cfg.segmentationParameters())
		if err != nil {
			return nil, nil, errors.Wrap(err, "near zone")
		}
		farGround, farObstacles, err := segmentZone(ctx, segmenter, far, cfg.farParameters())
		if err != nil {
			return nil, nil, errors.Wrap(err, "far zone")
		}
		return pointcloud.Concat(frame, stamp, nearGround, farGround),
			pointcloud.Concat(frame, stamp, band, nearObstacles, farObstacles),
			nil

	default:
		return nil, nil, errors.Errorf("unknown segmentation strategy %d", StrategyFromConfig(cfg))
	}
}

// segmentZone runs the segmenter over zone and extracts both results. An empty zone gives two
// empty clouds without calling the segmenter.
func segmentZone(
	ctx context.Context,
	segmenter segmentation.Segmenter,
	zone *pointcloud.PointCloud,
	params segmentation.Parameters,
) (*pointcloud.PointCloud, *pointcloud.PointCloud, error) {
	if zone.Size() == 0 {
		empty := pointcloud.NewEmpty(zone.FrameID(), zone.Timestamp())
		return empty, empty, nil
	}
	groundIdx, obstacleIdx, err := segmenter.Segment(ctx, zone, params)
	if err != nil {
		return nil, nil, errors.Wrap(err, "segmenting floor band")
	}
	if groundIdx, err = pointcloud.NewIndexSet(zone.Size(), groundIdx...); err != nil {
		return nil, nil, errors.Wrap(err, "segmenter returned invalid ground indices")
	}
	if obstacleIdx, err = pointcloud.NewIndexSet(zone.Size(), obstacleIdx...); err != nil {
		return nil, nil, errors.Wrap(err, "segmenter returned invalid obstacle indices")
	}
	if groundIdx.Intersects(obstacleIdx) {
		return nil, nil, errors.New("segmenter returned overlapping ground and obstacle indices")
	}
	ground, err := pointcloud.Extract(zone, groundIdx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "extracting ground")
	}
	obstacles, err := pointcloud.Extract(zone, obstacleIdx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "extracting obstacles")
	}
	return ground, obstacles, nil
}
