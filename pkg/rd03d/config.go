package rd03d

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Config defines how a Session is set up.
type Config struct {
	Timeout time.Duration `yaml:"timeout"`

	// WriteAttributes writes the attributes below during Setup instead of
	// reading them from the sensor.
	WriteAttributes bool  `yaml:"write_attributes"`
	MinDistance     int32 `yaml:"min_distance"`
	MaxDistance     int32 `yaml:"max_distance"`
	MinFrames       int32 `yaml:"min_frames"`
	MaxFrames       int32 `yaml:"max_frames"`
	DelayTime       int32 `yaml:"delay_time"`

	Detection DetectionMode `yaml:"-"`
	Mode      OperationMode `yaml:"-"`

	DetectionName string `yaml:"detection"`
	ModeName      string `yaml:"mode"`
}

var defaultConfig = Config{
	Timeout:       DefaultTimeout,
	MinDistance:   0,
	MaxDistance:   800,
	MinFrames:     1,
	MaxFrames:     5,
	DelayTime:     10,
	Detection:     DetectionMulti,
	Mode:          ModeReport,
	DetectionName: "multi",
	ModeName:      "report",
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.Timeout, "cmd-timeout", defaultConfig.Timeout, "Timeout of one command exchange.")
	flag.BoolVar(&defaultConfig.WriteAttributes, "write-attrs", defaultConfig.WriteAttributes, "Write attributes on setup instead of reading them.")
	flag.Var(int32Value{&defaultConfig.MinDistance}, "min-distance", "Minimum detection distance.")
	flag.Var(int32Value{&defaultConfig.MaxDistance}, "max-distance", "Maximum detection distance.")
	flag.Var(int32Value{&defaultConfig.MinFrames}, "min-frames", "Minimum frames to confirm a target.")
	flag.Var(int32Value{&defaultConfig.MaxFrames}, "max-frames", "Maximum frames to drop a target.")
	flag.Var(int32Value{&defaultConfig.DelayTime}, "delay-time", "Delay time before reporting absence.")
	flag.StringVar(&defaultConfig.DetectionName, "detection", defaultConfig.DetectionName, "Detection mode: single or multi.")
	flag.StringVar(&defaultConfig.ModeName, "mode", defaultConfig.ModeName, "Operation mode after setup: debug, report or run.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Attribute returns the configured value of attr.
func (c *Config) Attribute(attr Attribute) int32 {
	switch attr {
	case AttrMinDistance:
		return c.MinDistance
	case AttrMaxDistance:
		return c.MaxDistance
	case AttrMinFrames:
		return c.MinFrames
	case AttrMaxFrames:
		return c.MaxFrames
	case AttrDelayTime:
		return c.DelayTime
	}
	return 0
}

// Valid resolves mode names and fills in missing values.
func (c *Config) Valid() error {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DetectionName != "" {
		mode, err := ParseDetectionMode(c.DetectionName)
		if err != nil {
			return err
		}
		c.Detection = mode
	}
	if c.ModeName != "" {
		mode, err := ParseOperationMode(c.ModeName)
		if err != nil {
			return err
		}
		c.Mode = mode
	}
	if c.WriteAttributes {
		if c.MinDistance > c.MaxDistance {
			return fmt.Errorf("min-distance %d exceeds max-distance %d", c.MinDistance, c.MaxDistance)
		}
		if c.MinFrames > c.MaxFrames {
			return fmt.Errorf("min-frames %d exceeds max-frames %d", c.MinFrames, c.MaxFrames)
		}
	}
	return nil
}

// NewSession creates a Session using the config.
func (c *Config) NewSession(w io.Writer) *Session {
	s := NewSession(w)
	s.Timeout = c.Timeout
	return s
}

type int32Value struct {
	p *int32
}

func (v int32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return fmt.Sprint(*v.p)
}

func (v int32Value) Set(s string) error {
	var n int32
	if _, err := fmt.Sscan(s, &n); err != nil {
		return err
	}
	*v.p = n
	return nil
}
