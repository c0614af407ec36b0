package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/obstacles/config"
	"go.viam.com/obstacles/logging"
	"go.viam.com/obstacles/obstacles"
	"go.viam.com/obstacles/pointcloud"
	"go.viam.com/obstacles/pubsub"
	"go.viam.com/obstacles/referenceframe"
	"go.viam.com/obstacles/ros"
)

const defaultReplayPeriod = 100 * time.Millisecond

// replayRecorder writes every cloud delivered on a subscription to the output directory and
// remembers their sizes.
type replayRecorder struct {
	channel string
	outDir  string

	mu    sync.Mutex
	sizes []float64
}

func (r *replayRecorder) run(sub *pubsub.Subscription) error {
	for cloud := range sub.C() {
		r.mu.Lock()
		seq := len(r.sizes)
		r.sizes = append(r.sizes, float64(cloud.Size()))
		r.mu.Unlock()
		fn := filepath.Join(r.outDir, fmt.Sprintf("%s_%05d.pcd", r.channel, seq))
		if err := pointcloud.WriteToFile(cloud, fn); err != nil {
			return err
		}
	}
	return nil
}

// summaryRow describes the sizes of the recorded clouds as a row of the replay summary.
func (r *replayRecorder) summaryRow() (table.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sizes) == 0 {
		return table.Row{r.channel, 0, "-", "-", "-", "-"}, nil
	}
	data := stats.Float64Data(r.sizes)
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	p95, err := data.Percentile(95)
	if err != nil {
		return nil, err
	}
	maxSize, err := data.Max()
	if err != nil {
		return nil, err
	}
	return table.Row{
		r.channel,
		len(r.sizes),
		fmt.Sprintf("%.1f", mean),
		fmt.Sprintf("%.1f", median),
		fmt.Sprintf("%.1f", p95),
		fmt.Sprintf("%.0f", maxSize),
	}, nil
}

// recordedClouds returns the PCD and LAS files of dir in lexical order.
func recordedClouds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		return filepath.Join(dir, e.Name()), !e.IsDir() && (ext == ".pcd" || ext == ".las")
	})
	if len(files) == 0 {
		return nil, errors.Errorf("no .pcd or .las files in %q", dir)
	}
	return files, nil
}

// A recording is a sequence of clouds to replay.
type recording interface {
	Len() int
	Cloud(i int) (*pointcloud.PointCloud, error)
}

// pcdRecording reads its clouds from PCD or LAS files when they are replayed. The files carry
// no header, so each cloud is given frame and a stamp period after the previous one.
type pcdRecording struct {
	files  []string
	frame  string
	start  time.Time
	period time.Duration
}

func (r *pcdRecording) Len() int {
	return len(r.files)
}

func (r *pcdRecording) Cloud(i int) (*pointcloud.PointCloud, error) {
	cloud, err := pointcloud.NewFromFile(r.files[i], r.frame, r.start.Add(time.Duration(i)*r.period))
	return cloud, errors.Wrapf(err, "reading %q", r.files[i])
}

// bagRecording holds the decoded clouds of a rosbag. A non-empty frame overrides the frame of
// the recorded headers.
type bagRecording struct {
	clouds []*pointcloud.PointCloud
	frame  string
}

func (r *bagRecording) Len() int {
	return len(r.clouds)
}

func (r *bagRecording) Cloud(i int) (*pointcloud.PointCloud, error) {
	cloud := r.clouds[i]
	if r.frame != "" {
		cloud = cloud.WithHeader(r.frame, cloud.Timestamp())
	}
	return cloud, nil
}

// openRecording opens the recording the flags name and returns it with the tree resolving its
// transforms: the configured frames plus, for a bag, the transforms it recorded.
func openRecording(c *cli.Context, cfg *config.Config, detectionFrame string) (recording, *referenceframe.FrameTree, error) {
	tree, err := cfg.FrameTree()
	if err != nil {
		return nil, nil, err
	}
	dir, bag := c.Path(replayFlagDir), c.Path(replayFlagBag)
	switch {
	case dir != "" && bag != "":
		return nil, nil, errors.Errorf("set only one of --%s and --%s", replayFlagDir, replayFlagBag)
	case dir != "":
		files, err := recordedClouds(dir)
		if err != nil {
			return nil, nil, err
		}
		return &pcdRecording{
			files:  files,
			frame:  sourceFrame(c, detectionFrame),
			start:  time.Now(),
			period: c.Duration(replayFlagPeriod),
		}, tree, nil
	case bag != "":
		rb, err := ros.ReadBag(bag)
		if err != nil {
			return nil, nil, err
		}
		clouds, err := ros.LoadRecording(rb, c.String(replayFlagTopic), tree)
		if err != nil {
			return nil, nil, err
		}
		return &bagRecording{clouds: clouds, frame: c.String(generalFlagSourceFrame)}, tree, nil
	default:
		return nil, nil, errors.Errorf("set --%s or --%s", replayFlagDir, replayFlagBag)
	}
}

// serveMetrics serves the registry's metrics on addr until the returned function is called. It
// returns the address it listens on.
func serveMetrics(addr string, reg *prometheus.Registry, logger logging.Logger) (string, func() error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", obstacles.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server stopped", "error", err)
		}
	}()
	logger.Infow("serving metrics", "addr", listener.Addr().String())
	return listener.Addr().String(), func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

// ReplayAction feeds a directory of recorded PCD files or the clouds of a rosbag through the
// detector and writes what it publishes on both channels.
func ReplayAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c, logging.NewBlankLogger("config"))
	if err != nil {
		return err
	}
	logger, closeLogger := newLogger(c, cfg)
	defer closeLogger()

	detection, err := cfg.DetectionConfig()
	if err != nil {
		return err
	}
	rec, tree, err := openRecording(c, cfg, detection.FrameID)
	if err != nil {
		return err
	}
	outDir := c.Path(replayFlagOutDir)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := obstacles.NewMetrics(reg)
	if err != nil {
		return err
	}
	if addr := c.String(replayFlagMetricsAddr); addr != "" {
		_, stop, err := serveMetrics(addr, reg, logger)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, stop())
		}()
	}

	groundTopic := pubsub.NewTopic("ground")
	obstaclesTopic := pubsub.NewTopic("obstacles")
	det, _, err := newDetector(cfg, tree, logger, groundTopic, obstaclesTopic, metrics)
	if err != nil {
		return err
	}

	// every recorded frame is kept, so the queues hold the whole recording
	recorders := make([]*replayRecorder, 0, 2)
	g, ctx := errgroup.WithContext(c.Context)
	for _, topic := range []*pubsub.Topic{groundTopic, obstaclesTopic} {
		sub, err := topic.Subscribe(rec.Len())
		if err != nil {
			return err
		}
		recorder := &replayRecorder{channel: topic.Name(), outDir: outDir}
		recorders = append(recorders, recorder)
		g.Go(func() error { return recorder.run(sub) })
	}

	frames := make(chan *pointcloud.PointCloud, detection.QueueSize)
	g.Go(func() error {
		defer close(frames)
		for i := 0; i < rec.Len(); i++ {
			cloud, err := rec.Cloud(i)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case frames <- cloud:
			}
		}
		return nil
	})
	g.Go(func() error {
		defer groundTopic.Close()
		defer obstaclesTopic.Close()
		return det.Run(ctx, frames)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	st := det.Stats()
	printf(c.App.Writer, "replayed %d clouds with %s segmentation: %d processed, %d empty, %d dropped, %d failed",
		rec.Len(), det.Strategy(), st.FramesProcessed, st.FramesEmpty, st.FramesDropped, st.FramesFailed)
	summary := table.NewWriter()
	summary.SetOutputMirror(c.App.Writer)
	summary.AppendHeader(table.Row{"Channel", "Clouds", "Mean points", "Median", "P95", "Max"})
	for _, recorder := range recorders {
		row, err := recorder.summaryRow()
		if err != nil {
			return err
		}
		summary.AppendRow(row)
	}
	summary.Render()

	if fn := c.Path(replayFlagPlot); fn != "" {
		if err := plotSizes(fn, recorders); err != nil {
			return errors.Wrap(err, "plotting output sizes")
		}
		printf(c.App.Writer, "output sizes plotted to %s", fn)
	}
	return nil
}
