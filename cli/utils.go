package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/obstacles/config"
	"go.viam.com/obstacles/logging"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// loadConfig reads the file named by the config flag, or an empty config when the flag is unset.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	path := c.String(generalFlagConfig)
	if path == "" {
		return config.FromReader("", strings.NewReader("{}"), logger)
	}
	return config.Read(path, logger)
}

// newLogger returns a logger writing to stdout, and to the log file flag if set, at the config's
// level or DEBUG when the debug flag is set. The returned function flushes and closes it.
func newLogger(c *cli.Context, cfg *config.Config) (logging.Logger, func()) {
	var logger logging.Logger
	var closer io.Closer
	debug := c.Bool(generalFlagDebug)
	switch path := c.Path(generalFlagLogFile); {
	case path != "":
		logger, closer = logging.NewFileLogger("obstacles", path)
	case debug:
		logger = logging.NewDebugLogger("obstacles")
	default:
		logger = logging.NewLogger("obstacles")
	}
	if debug {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(cfg.Level())
	}
	return logger, func() {
		//nolint:errcheck
		logger.Sync()
		if closer != nil {
			utils.UncheckedError(closer.Close())
		}
	}
}

// sourceFrame returns the source frame flag, or the detection frame when unset.
func sourceFrame(c *cli.Context, detectionFrame string) string {
	if frame := c.String(generalFlagSourceFrame); frame != "" {
		return frame
	}
	return detectionFrame
}
