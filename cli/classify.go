package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/obstacles/config"
	"go.viam.com/obstacles/logging"
	"go.viam.com/obstacles/obstacles"
	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/referenceframe"
	"go.viam.com/obstacles/vision/segmentation"
)

// fileSink is an output channel writing the cloud it receives to a PCD file. A sink without a
// path has no subscriber, so the detector skips computing its channel.
type fileSink struct {
	path  string
	cloud *pointcloud.PointCloud
}

func (s *fileSink) NumSubscribers() int {
	if s.path == "" {
		return 0
	}
	return 1
}

func (s *fileSink) Publish(ctx context.Context, cloud *pointcloud.PointCloud) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cloud = cloud
	return pointcloud.WriteToFile(cloud, s.path)
}

// newDetector builds a detector from a config file's detection section, resolving transforms
// with tree.
func newDetector(
	cfg *config.Config,
	tree *referenceframe.FrameTree,
	logger logging.Logger,
	ground, obstaclesOut obstacles.Publisher,
	metrics *obstacles.Metrics,
) (*obstacles.Detector, *obstacles.Config, error) {
	detection, err := cfg.DetectionConfig()
	if err != nil {
		return nil, nil, err
	}
	det, err := obstacles.NewDetector(obstacles.DetectorParams{
		Config:    *detection,
		Segmenter: segmentation.NewNormalSegmenter(logger.Sublogger("segmentation")),
		Resolver:  tree,
		Ground:    ground,
		Obstacles: obstaclesOut,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	return det, detection, nil
}

// ClassifyAction classifies the points of a single PCD file and writes the requested outputs.
func ClassifyAction(c *cli.Context) error {
	cfg, err := loadConfig(c, logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(c, cfg)
	defer closeLogger()

	ground := &fileSink{path: c.Path(classifyFlagGround)}
	obstacleSink := &fileSink{path: c.Path(classifyFlagObstacles)}
	if ground.path == "" && obstacleSink.path == "" {
		return errors.Errorf("nothing to do, set --%s or --%s", classifyFlagGround, classifyFlagObstacles)
	}

	tree, err := cfg.FrameTree()
	if err != nil {
		return err
	}
	det, detection, err := newDetector(cfg, tree, logger, ground, obstacleSink, nil)
	if err != nil {
		return err
	}
	input := c.Path(classifyFlagInput)
	cloud, err := pointcloud.NewFromFile(input, sourceFrame(c, detection.FrameID), time.Now())
	if err != nil {
		return errors.Wrapf(err, "reading %q", input)
	}
	if err := det.ProcessCloud(c.Context, cloud); err != nil {
		return err
	}

	printf(c.App.Writer, "classified %d points from %s with %s segmentation", cloud.Size(), input, det.Strategy())
	for _, sink := range []struct {
		name string
		*fileSink
	}{{"ground", ground}, {"obstacles", obstacleSink}} {
		if sink.cloud != nil {
			printf(c.App.Writer, "\t%s: %d points -> %s", sink.name, sink.cloud.Size(), sink.path)
		}
	}
	return nil
}
