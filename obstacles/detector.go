// Package obstacles classifies the points of incoming clouds into ground and obstacles relative
// to the robot and publishes both results.
package obstacles

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"

	"go.viam.com/obstacles/logging"
	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/referenceframe"
	"go.viam.com/obstacles/vision/segmentation"
)

// A Publisher is an output channel of the detector.
type Publisher interface {
	// NumSubscribers returns how many consumers currently want the channel's clouds.
	NumSubscribers() int
	Publish(ctx context.Context, cloud *pointcloud.PointCloud) error
}

// DetectorParams contain the parameters and collaborators of a Detector.
type DetectorParams struct {
	Config    Config
	Segmenter segmentation.Segmenter
	Resolver  referenceframe.Resolver
	Ground    Publisher
	Obstacles Publisher
	Logger    logging.Logger
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Metrics is optional.
	Metrics *Metrics
}

// Stats summarizes what a Detector has done so far.
type Stats struct {
	FramesProcessed int
	FramesEmpty     int
	FramesSkipped   int
	FramesDropped   int
	FramesFailed    int
	// LastProcessingDuration is how long the last classified frame took.
	LastProcessingDuration time.Duration
	// LastFrameInterval is the time between the last two classified frames.
	LastFrameInterval time.Duration
}

// Detector runs the classification pipeline one frame at a time.
type Detector struct {
	cfg       Config
	strategy  Strategy
	segmenter segmentation.Segmenter
	resolver  referenceframe.Resolver
	ground    Publisher
	obstacles Publisher
	logger    logging.Logger
	clock     clock.Clock
	metrics   *Metrics

	mu            sync.Mutex
	lastFrameTime time.Time
	stats         Stats
}

// NewDetector validates the configuration and returns a Detector.
func NewDetector(params DetectorParams) (*Detector, error) {
	if err := params.Config.Validate("detection"); err != nil {
		return nil, err
	}
	if params.Resolver == nil {
		return nil, errors.New("detector needs a transform resolver")
	}
	if params.Ground == nil || params.Obstacles == nil {
		return nil, errors.New("detector needs both ground and obstacles publishers")
	}
	if params.Logger == nil {
		params.Logger = logging.NewBlankLogger("obstacles")
	}
	if params.Clock == nil {
		params.Clock = clock.New()
	}
	strategy := StrategyFromConfig(&params.Config)
	if params.Segmenter == nil && strategy != StrategySimple {
		return nil, errors.Errorf("%s segmentation needs a segmenter", strategy)
	}
	d := &Detector{
		cfg:       params.Config,
		strategy:  strategy,
		segmenter: params.Segmenter,
		resolver:  params.Resolver,
		ground:    params.Ground,
		obstacles: params.Obstacles,
		logger:    params.Logger,
		clock:     params.Clock,
		metrics:   params.Metrics,
	}
	d.logger.Infow("obstacle detection ready",
		"frame_id", d.cfg.FrameID,
		"strategy", strategy.String(),
		"wait_for_transform", d.cfg.WaitForTransform,
	)
	return d, nil
}

// Strategy returns the segmentation strategy the detector runs.
func (d *Detector) Strategy() Strategy {
	return d.strategy
}

// Stats returns a snapshot of the detector's counters.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// ProcessCloud classifies one input cloud and publishes the results to every output channel
// that has a subscriber. If no channel has a subscriber it returns without doing any work. A
// failure to resolve the transform drops the frame without publishing and returns an error
// wrapping referenceframe.ErrTransformUnavailable.
func (d *Detector) ProcessCloud(ctx context.Context, cloud *pointcloud.PointCloud) error {
	ctx, span := trace.StartSpan(ctx, "obstacles::Detector::ProcessCloud")
	defer span.End()

	if cloud == nil {
		d.record(outcomeFailed)
		return errors.New("point cloud must not be nil")
	}

	// subscriber counts are sampled once per frame
	wantGround := d.ground.NumSubscribers() > 0
	wantObstacles := d.obstacles.NumSubscribers() > 0
	if !wantGround && !wantObstacles {
		d.record(outcomeSkipped)
		return nil
	}

	start := d.clock.Now()
	var timeout time.Duration
	if d.cfg.WaitForTransform {
		timeout = d.cfg.WaitForTransformTimeout
	}
	pose, err := d.resolver.Resolve(ctx, d.cfg.FrameID, cloud.FrameID(), cloud.Timestamp(), timeout)
	if err != nil {
		d.logger.Errorw("cannot transform point cloud",
			"source_frame", cloud.FrameID(),
			"target_frame", d.cfg.FrameID,
			"stamp", cloud.Timestamp(),
			"error", err,
		)
		d.record(outcomeDropped)
		return errors.Wrapf(err, "transforming %q to %q", cloud.FrameID(), d.cfg.FrameID)
	}

	var ground, obstacles *pointcloud.PointCloud
	outcome := outcomeProcessed
	if cloud.Size() == 0 {
		// downstream consumers expect one message per input frame, even an empty one
		d.logger.Warnw("received empty point cloud", "source_frame", cloud.FrameID(), "stamp", cloud.Timestamp())
		ground = pointcloud.NewEmpty(d.cfg.FrameID, cloud.Timestamp())
		obstacles = ground
		outcome = outcomeEmpty
	} else {
		transformed := pointcloud.ApplyPose(cloud, pose, d.cfg.FrameID)
		ground, obstacles, err = Classify(ctx, transformed, &d.cfg, d.segmenter)
		if err != nil {
			d.logger.Errorw("cannot classify point cloud", "error", err)
			d.record(outcomeFailed)
			return err
		}
	}

	var publishErr error
	if wantGround {
		publishErr = multierr.Combine(publishErr, errors.Wrap(d.ground.Publish(ctx, ground), "publishing ground"))
		d.observePoints("ground", ground.Size())
	}
	if wantObstacles {
		publishErr = multierr.Combine(publishErr, errors.Wrap(d.obstacles.Publish(ctx, obstacles), "publishing obstacles"))
		d.observePoints("obstacles", obstacles.Size())
	}

	d.finishFrame(start, outcome, ground.Size(), obstacles.Size())
	return publishErr
}

// Run processes clouds from frames one at a time until frames is closed or ctx is done. Frame
// errors are logged and do not stop the loop.
func (d *Detector) Run(ctx context.Context, frames <-chan *pointcloud.PointCloud) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cloud, ok := <-frames:
			if !ok {
				return nil
			}
			if err := d.ProcessCloud(ctx, cloud); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.logger.Debugw("frame not published", "error", err)
			}
		}
	}
}

func (d *Detector) finishFrame(start time.Time, outcome string, groundPoints, obstaclePoints int) {
	now := d.clock.Now()
	processing := now.Sub(start)

	d.mu.Lock()
	var between time.Duration
	if !d.lastFrameTime.IsZero() {
		between = now.Sub(d.lastFrameTime)
	}
	d.lastFrameTime = now
	d.stats.LastProcessingDuration = processing
	d.stats.LastFrameInterval = between
	d.mu.Unlock()

	d.record(outcome)
	if d.metrics != nil {
		d.metrics.ProcessingDuration.Observe(processing.Seconds())
	}
	d.logger.Debugw("processed point cloud",
		"strategy", d.strategy.String(),
		"ground", groundPoints,
		"obstacles", obstaclePoints,
		"processing", processing,
		"between_frames", between,
	)
}

func (d *Detector) record(outcome string) {
	d.mu.Lock()
	switch outcome {
	case outcomeProcessed:
		d.stats.FramesProcessed++
	case outcomeEmpty:
		d.stats.FramesEmpty++
	case outcomeSkipped:
		d.stats.FramesSkipped++
	case outcomeDropped:
		d.stats.FramesDropped++
	case outcomeFailed:
		d.stats.FramesFailed++
	}
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.FramesTotal.WithLabelValues(outcome).Inc()
	}
}

func (d *Detector) observePoints(channel string, n int) {
	if d.metrics != nil {
		d.metrics.OutputPoints.WithLabelValues(channel).Observe(float64(n))
	}
}
