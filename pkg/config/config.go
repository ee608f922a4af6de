// Package config holds the gamepad configuration: tuning constants, channel and
// pin assignments, transport settings. Defaults come from `default:` struct tags;
// a YAML file overlays them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/report"
	"gopkg.in/yaml.v3"
)

// Input drivers.
const (
	DriverMock     = "mock"
	DriverScript   = "script"
	DriverHardware = "hardware"
	DriverLua      = "lua"
)

// Config holds application configuration
type Config struct {
	LogLevel   string        `yaml:"log_level" default:"info"`
	DeviceName string        `yaml:"device_name" default:"blepad"`
	Layout     string        `yaml:"layout" default:"compact4"`
	ReportID   int           `yaml:"report_id" default:"1"`
	Tick       time.Duration `yaml:"tick" default:"50ms"`
	QueueSize  int           `yaml:"queue_size" default:"8"`

	Calibration  Calibration  `yaml:"calibration"`
	Conditioning Conditioning `yaml:"conditioning"`
	Gate         Gate         `yaml:"gate"`
	Sticks       Sticks       `yaml:"sticks"`
	Input        Input        `yaml:"input"`

	// Buttons maps a button name to its pin. Map order is bit order.
	Buttons ButtonMap `yaml:"buttons"`
}

// Calibration controls the startup center measurement. Values are millivolts.
type Calibration struct {
	Samples    int           `yaml:"samples" default:"10"`
	Delay      time.Duration `yaml:"delay" default:"10ms"`
	MinMV      int           `yaml:"min_mv" default:"0"`
	MaxMV      int           `yaml:"max_mv" default:"3300"`
	FallbackMV int           `yaml:"fallback_mv" default:"1650"`
}

// Conditioning holds the analog shaping and discretization constants.
type Conditioning struct {
	DeadZone           float64 `yaml:"dead_zone" default:"0.12"`
	CurveSoftness      float64 `yaml:"curve_softness" default:"0.7"`
	DirectionThreshold float64 `yaml:"direction_threshold" default:"0.3"`
}

// Gate holds the change/rate gate parameters.
type Gate struct {
	// HeartbeatTicks <= 0 disables the held-button heartbeat.
	HeartbeatTicks int `yaml:"heartbeat_ticks" default:"10"`
	Jitter         int `yaml:"jitter" default:"2"`
}

// Sticks assigns analog channels. A negative channel is not wired and reads as
// neutral.
type Sticks struct {
	LeftX        int  `yaml:"left_x" default:"0"`
	LeftY        int  `yaml:"left_y" default:"3"`
	RightX       int  `yaml:"right_x" default:"-1"`
	RightY       int  `yaml:"right_y" default:"-1"`
	LeftTrigger  int  `yaml:"left_trigger" default:"-1"`
	RightTrigger int  `yaml:"right_trigger" default:"-1"`
	InvertX      bool `yaml:"invert_x"`
	InvertY      bool `yaml:"invert_y"`
	InvertRX     bool `yaml:"invert_rx"`
	InvertRY     bool `yaml:"invert_ry"`
}

// Input selects where samples come from.
type Input struct {
	Driver     string `yaml:"driver" default:"mock"`
	ScriptPath string `yaml:"script"`
	IIODevice  string `yaml:"iio_device" default:"/sys/bus/iio/devices/iio:device0"`
	ActiveLow  bool   `yaml:"active_low" default:"true"`

	MockRestMV   int     `yaml:"mock_rest_mv" default:"1650"`
	MockNoise    int     `yaml:"mock_noise" default:"20"`
	MockFailRate float64 `yaml:"mock_fail_rate"`
	Seed         int64   `yaml:"seed" default:"1"`
}

// DefaultButtons is the four-button pad: A, B, Select, Start.
func DefaultButtons() ButtonMap {
	b := NewButtonMap()
	b.Set("a", 32)
	b.Set("b", 33)
	b.Set("select", 26)
	b.Set("start", 25)
	return b
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.Buttons = DefaultButtons()
	return cfg
}

// Load reads a YAML file over the defaults and validates the result. An empty
// path yields the validated defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.Unmarshal(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Unmarshal overlays YAML data on c. A document without a buttons section keeps
// the buttons c already has.
func (c *Config) Unmarshal(data []byte) error {
	keep := c.Buttons
	c.Buttons = ButtonMap{}
	if err := yaml.Unmarshal(data, c); err != nil {
		c.Buttons = keep
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if c.Buttons.Len() == 0 {
		c.Buttons = keep
	}
	return nil
}

// ValidationError reports a configuration value that cannot be used.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Msg)
}

// ErrInvalid matches any *ValidationError with errors.Is.
var ErrInvalid = errors.New("invalid config")

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", "%q is not a log level", c.LogLevel)
	}
	layout, err := report.ParseLayout(c.Layout)
	if err != nil {
		return invalid("layout", "%v", err)
	}
	if c.ReportID < 1 || c.ReportID > 255 {
		return invalid("report_id", "must be 1..255, got %d", c.ReportID)
	}
	if c.Tick <= 0 {
		return invalid("tick", "must be positive, got %s", c.Tick)
	}
	if c.QueueSize < 1 {
		return invalid("queue_size", "must be at least 1, got %d", c.QueueSize)
	}

	cal := c.Calibration
	if cal.Samples < 1 {
		return invalid("calibration.samples", "must be at least 1, got %d", cal.Samples)
	}
	if cal.Delay < 0 {
		return invalid("calibration.delay", "must not be negative")
	}
	if cal.MinMV >= cal.MaxMV {
		return invalid("calibration", "min_mv %d must be below max_mv %d", cal.MinMV, cal.MaxMV)
	}
	if cal.FallbackMV < cal.MinMV || cal.FallbackMV > cal.MaxMV {
		return invalid("calibration.fallback_mv", "%d is outside %d..%d", cal.FallbackMV, cal.MinMV, cal.MaxMV)
	}

	cond := c.Conditioning
	if cond.DeadZone < 0 || cond.DeadZone >= 1 {
		return invalid("conditioning.dead_zone", "must be in [0, 1), got %v", cond.DeadZone)
	}
	if cond.CurveSoftness < 0 || cond.CurveSoftness > 1 {
		return invalid("conditioning.curve_softness", "must be in [0, 1], got %v", cond.CurveSoftness)
	}
	if cond.DirectionThreshold <= 0 || cond.DirectionThreshold >= 1 {
		return invalid("conditioning.direction_threshold", "must be in (0, 1), got %v", cond.DirectionThreshold)
	}
	if c.Gate.Jitter < 0 {
		return invalid("gate.jitter", "must not be negative, got %d", c.Gate.Jitter)
	}

	if c.Buttons.Len() > layout.MaxButtons() {
		return invalid("buttons", "%d buttons configured, layout %s carries %d", c.Buttons.Len(), layout, layout.MaxButtons())
	}
	seen := make(map[int]string)
	for name, pin := range c.Buttons.All() {
		if pin < 0 {
			return invalid("buttons."+name, "pin must not be negative, got %d", pin)
		}
		if other, dup := seen[pin]; dup {
			return invalid("buttons."+name, "pin %d already used by %s", pin, other)
		}
		seen[pin] = name
	}

	switch c.Input.Driver {
	case DriverMock:
		if c.Input.MockFailRate < 0 || c.Input.MockFailRate > 1 {
			return invalid("input.mock_fail_rate", "must be in [0, 1], got %v", c.Input.MockFailRate)
		}
	case DriverScript, DriverLua:
		if c.Input.ScriptPath == "" {
			return invalid("input.script", "required by the %s driver", c.Input.Driver)
		}
	case DriverHardware:
	default:
		return invalid("input.driver", "%q (must be one of %s, %s, %s, %s)",
			c.Input.Driver, DriverMock, DriverScript, DriverLua, DriverHardware)
	}

	return nil
}

// ReportLayout returns the parsed layout. Call Validate first.
func (c *Config) ReportLayout() report.Layout {
	l, _ := report.ParseLayout(c.Layout)
	return l
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
