package obstacles

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/vision/segmentation"
)

// Config is the detection configuration. It is read once at startup and never changes while a
// Detector runs.
type Config struct {
	FrameID                 string        `json:"frame_id"`
	NormalEstimationRadius  float64       `json:"normal_estimation_radius"`
	GroundNormalAngle       float64       `json:"ground_normal_angle"`
	MinClusterSize          int           `json:"min_cluster_size"`
	MaxFloorHeight          float64       `json:"max_floor_height"`
	MaxObstaclesHeight      float64       `json:"max_obstacles_height"`
	WaitForTransform        bool          `json:"wait_for_transform"`
	WaitForTransformTimeout time.Duration `json:"wait_for_transform_timeout"`
	SimpleSegmentation      bool          `json:"simple_segmentation"`
	OptimizeForCloseObject  bool          `json:"optimize_for_close_object"`

	// Distance zoning, used when OptimizeForCloseObject is set.
	NearDistance      float64 `json:"near_distance"`
	BlindZoneDistance float64 `json:"blind_zone_distance"`
	ForwardAxis       string  `json:"forward_axis"`
	FarRadiusScale    float64 `json:"far_radius_scale"`
	FarAngleScale     float64 `json:"far_angle_scale"`

	// QueueSize bounds the input subscription.
	QueueSize int `json:"queue_size"`
}

// DefaultConfig returns the configuration used for any key a config file leaves out.
func DefaultConfig() Config {
	return Config{
		FrameID:                 "base_link",
		NormalEstimationRadius:  0.05,
		GroundNormalAngle:       math.Pi / 4,
		MinClusterSize:          20,
		MaxFloorHeight:          -1,
		MaxObstaclesHeight:      1.5,
		WaitForTransform:        false,
		WaitForTransformTimeout: time.Second,
		SimpleSegmentation:      false,
		OptimizeForCloseObject:  true,
		NearDistance:            1.0,
		BlindZoneDistance:       0.8,
		ForwardAxis:             "x",
		FarRadiusScale:          3,
		FarAngleScale:           2,
		QueueSize:               1,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.FrameID == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "frame_id")
	}
	for _, field := range []struct {
		name string
		v    float64
	}{
		{"normal_estimation_radius", cfg.NormalEstimationRadius},
		{"ground_normal_angle", cfg.GroundNormalAngle},
		{"max_floor_height", cfg.MaxFloorHeight},
		{"max_obstacles_height", cfg.MaxObstaclesHeight},
		{"near_distance", cfg.NearDistance},
		{"blind_zone_distance", cfg.BlindZoneDistance},
		{"far_radius_scale", cfg.FarRadiusScale},
		{"far_angle_scale", cfg.FarAngleScale},
	} {
		if math.IsNaN(field.v) || math.IsInf(field.v, 0) {
			return utils.NewConfigValidationError(path, errors.Errorf("%s must be a finite number", field.name))
		}
	}
	if err := cfg.segmentationParameters().Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.MaxFloorHeight >= cfg.MaxObstaclesHeight {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_floor_height (%v) must be lower than max_obstacles_height (%v)", cfg.MaxFloorHeight, cfg.MaxObstaclesHeight))
	}
	if cfg.BlindZoneDistance > cfg.NearDistance {
		return utils.NewConfigValidationError(path,
			errors.Errorf("blind_zone_distance (%v) cannot be beyond near_distance (%v)", cfg.BlindZoneDistance, cfg.NearDistance))
	}
	if _, err := pointcloud.AxisFromString(cfg.ForwardAxis); err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "forward_axis"))
	}
	if cfg.FarRadiusScale <= 0 {
		return utils.NewConfigValidationError(path, errors.New("far_radius_scale must be positive"))
	}
	if cfg.FarAngleScale <= 0 {
		return utils.NewConfigValidationError(path, errors.New("far_angle_scale must be positive"))
	}
	if cfg.WaitForTransformTimeout < 0 {
		return utils.NewConfigValidationError(path, errors.New("wait_for_transform_timeout cannot be negative"))
	}
	if cfg.QueueSize < 0 {
		return utils.NewConfigValidationError(path, errors.New("queue_size cannot be negative"))
	}
	return nil
}

func (cfg *Config) segmentationParameters() segmentation.Parameters {
	return segmentation.Parameters{
		NormalEstimationRadius: cfg.NormalEstimationRadius,
		GroundNormalAngle:      cfg.GroundNormalAngle,
		MinClusterSize:         cfg.MinClusterSize,
	}
}

// farParameters widens the near parameters for the sparser far field. The angle never exceeds a
// right angle.
func (cfg *Config) farParameters() segmentation.Parameters {
	p := cfg.segmentationParameters()
	p.NormalEstimationRadius *= cfg.FarRadiusScale
	p.GroundNormalAngle = math.Min(p.GroundNormalAngle*cfg.FarAngleScale, math.Pi/2)
	return p
}

func (cfg *Config) forwardAxis() pointcloud.Axis {
	axis, err := pointcloud.AxisFromString(cfg.ForwardAxis)
	if err != nil {
		return pointcloud.AxisX
	}
	return axis
}
