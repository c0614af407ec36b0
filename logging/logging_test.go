package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")
}

func TestLevelJSON(t *testing.T) {
	data, err := WARN.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `"warn"`)

	var level Level
	test.That(t, level.UnmarshalJSON([]byte(`"error"`)), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, ERROR)
	test.That(t, level.UnmarshalJSON([]byte(`12`)), test.ShouldNotBeNil)
}

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("frame processed", "points", 12)
	logger.Debugf("between frames %d", 3)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entry := logs.All()[0]
	test.That(t, entry.Message, test.ShouldEqual, "frame processed")
	test.That(t, entry.Level, test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, entry.ContextMap()["points"], test.ShouldEqual, int64(12))

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Info("dropped")
	logger.Warn("kept")
	test.That(t, logs.FilterMessage("dropped").Len(), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessage("kept").Len(), test.ShouldEqual, 1)
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("detector").Sublogger("segmenter")
	sub.Error("boom")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "detector.segmenter")
}

func TestBlankLogger(t *testing.T) {
	logger := NewBlankLogger("quiet")
	logger.Errorw("never shown", "k", "v")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestStdoutLoggerLevels(t *testing.T) {
	test.That(t, NewLogger("obstacles").GetLevel(), test.ShouldEqual, INFO)
	debug := NewDebugLogger("obstacles")
	test.That(t, debug.GetLevel(), test.ShouldEqual, DEBUG)
	debug.SetLevel(WARN)
	test.That(t, debug.GetLevel(), test.ShouldEqual, WARN)
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obstacles.log")
	logger, closer := NewFileLogger("obstacles", path)
	logger.Debugw("hidden", "frame", 1)
	logger.Infow("processed point cloud", "ground", 12)
	logger.SetLevel(DEBUG)
	logger.Sublogger("segmentation").Debugw("segmented", "clusters", 2)
	// syncing stdout fails when it is a pipe, the file is written unbuffered
	//nolint:errcheck
	logger.Sync()
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldNotContainSubstring, "hidden")
	test.That(t, string(contents), test.ShouldContainSubstring, `"msg":"processed point cloud"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"ground":12`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"logger":"obstacles.segmentation"`)
}
