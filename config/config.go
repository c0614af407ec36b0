// Package config reads the configuration file of the obstacle detector: the log level, the
// detection parameters and the static transforms between the robot's frames.
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/obstacles/logging"
	"go.viam.com/obstacles/obstacles"
	"go.viam.com/obstacles/referenceframe"
)

// AttributeMap is a loosely typed set of attributes, converted to a typed config on demand.
type AttributeMap map[string]interface{}

// Config describes a configuration file.
type Config struct {
	ConfigFilePath string `json:"-"`

	LogLevel  string        `json:"log_level,omitempty"`
	Detection AttributeMap  `json:"detection,omitempty"`
	Frames    []FrameConfig `json:"frames,omitempty"`
	// CacheDuration is how much history of stamped transforms is kept.
	CacheDuration string `json:"transform_cache_duration,omitempty"`
}

// Ensure ensures all parts of the config are valid.
func (c *Config) Ensure() error {
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return errors.Wrap(err, "log_level")
		}
	}
	if _, err := c.TransformCacheDuration(); err != nil {
		return err
	}
	for idx := range c.Frames {
		if err := c.Frames[idx].Validate(fmt.Sprintf("%s.%d", "frames", idx)); err != nil {
			return err
		}
	}
	dupes := lo.FindDuplicates(lo.Map(c.Frames, func(f FrameConfig, _ int) string { return f.Name }))
	if len(dupes) > 0 {
		return errors.Errorf("frames defined more than once: %v", dupes)
	}
	if _, err := c.DetectionConfig(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, INFO if unset.
func (c *Config) Level() logging.Level {
	if c.LogLevel == "" {
		return logging.INFO
	}
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// TransformCacheDuration returns the configured transform history, the default if unset.
func (c *Config) TransformCacheDuration() (time.Duration, error) {
	if c.CacheDuration == "" {
		return referenceframe.DefaultCacheDuration, nil
	}
	d, err := time.ParseDuration(c.CacheDuration)
	if err != nil {
		return 0, errors.Wrap(err, "transform_cache_duration")
	}
	if d <= 0 {
		return 0, errors.New("transform_cache_duration must be positive")
	}
	return d, nil
}

// DetectionConfig converts the detection attributes into a validated obstacles.Config. Keys the
// attributes leave out keep their defaults; unknown keys are an error.
func (c *Config) DetectionConfig() (*obstacles.Config, error) {
	conf := obstacles.DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(c.Detection)); err != nil {
		return nil, errors.Wrap(err, "detection")
	}
	if err := conf.Validate("detection"); err != nil {
		return nil, err
	}
	return &conf, nil
}

// FrameTree builds a transform tree holding every configured static frame.
func (c *Config) FrameTree() (*referenceframe.FrameTree, error) {
	cacheTime, err := c.TransformCacheDuration()
	if err != nil {
		return nil, err
	}
	tree := referenceframe.NewFrameTree(cacheTime)
	var errs error
	for _, f := range c.Frames {
		multierr.AppendInto(&errs, errors.Wrapf(tree.SetStatic(f.Parent, f.Name, f.Pose()), "frame %q", f.Name))
	}
	if errs != nil {
		return nil, errs
	}
	return tree, nil
}
