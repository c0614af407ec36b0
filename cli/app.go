// Package cli contains the obstacles command line: classifying a single point cloud file,
// replaying a directory of recorded clouds through the detector and printing the config schema.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagConfig      = "config"
	generalFlagDebug       = "debug"
	generalFlagLogFile     = "log-file"
	generalFlagSourceFrame = "source-frame"

	classifyFlagInput     = "input"
	classifyFlagGround    = "ground"
	classifyFlagObstacles = "obstacles"

	replayFlagDir         = "dir"
	replayFlagBag         = "bag"
	replayFlagTopic       = "topic"
	replayFlagOutDir      = "out-dir"
	replayFlagPeriod      = "period"
	replayFlagMetricsAddr = "metrics-addr"
	replayFlagPlot        = "plot"

	schemaFlagDetectionOnly = "detection-only"
)

var app = &cli.App{
	Name:            "obstacles",
	Usage:           "split point clouds into ground and obstacles",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  generalFlagLogFile,
			Usage: "also append JSON logs to `FILE`, rotated as it grows",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "classify",
			Usage:     "classify the points of a single PCD file",
			UsageText: "obstacles [-c config.json] classify --input <cloud.pcd> [--ground <out.pcd>] [--obstacles <out.pcd>]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     classifyFlagInput,
					Usage:    "PCD file to classify",
					Required: true,
				},
				&cli.StringFlag{
					Name:  generalFlagSourceFrame,
					Usage: "frame the input points are expressed in, the detection frame if unset",
				},
				&cli.PathFlag{
					Name:  classifyFlagGround,
					Usage: "where to write the ground points, not computed if unset",
				},
				&cli.PathFlag{
					Name:  classifyFlagObstacles,
					Usage: "where to write the obstacle points, not computed if unset",
				},
			},
			Action: ClassifyAction,
		},
		{
			Name:      "replay",
			Usage:     "run the detector over recorded PCD files or a rosbag",
			UsageText: "obstacles [-c config.json] replay (--dir <recording> | --bag <file.bag>) --out-dir <results>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:  replayFlagDir,
					Usage: "directory holding the recorded clouds, replayed in lexical order",
				},
				&cli.PathFlag{
					Name: replayFlagBag,
					Usage: "rosbag holding the recorded clouds, replayed in stamp order; " +
						"its transforms must fit in transform_cache_duration",
				},
				&cli.StringFlag{
					Name:  replayFlagTopic,
					Usage: "PointCloud2 topic of the rosbag to replay",
					Value: "/cloud",
				},
				&cli.PathFlag{
					Name:     replayFlagOutDir,
					Usage:    "directory the ground and obstacle clouds are written to",
					Required: true,
				},
				&cli.StringFlag{
					Name:  generalFlagSourceFrame,
					Usage: "frame the recorded points are expressed in; for PCD files the detection frame if unset, for a rosbag the recorded frame",
				},
				&cli.DurationFlag{
					Name:  replayFlagPeriod,
					Usage: "time between the stamps of consecutive PCD files",
					Value: defaultReplayPeriod,
				},
				&cli.StringFlag{
					Name:  replayFlagMetricsAddr,
					Usage: "serve Prometheus metrics on `ADDR` while replaying",
				},
				&cli.PathFlag{
					Name:  replayFlagPlot,
					Usage: "plot the points published per frame to `FILE` (png, svg or pdf)",
				},
			},
			Action: ReplayAction,
		},
		{
			Name:  "schema",
			Usage: "print the JSON schema of the configuration file",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  schemaFlagDetectionOnly,
					Usage: "only print the schema of the detection section",
				},
			},
			Action: SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
