package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SerialConfig describes the serial link to the gimbal.
type SerialConfig struct {
	Port              string `yaml:"port"`                // e.g., "/dev/ttyAMA0"
	Baud              int    `yaml:"baud"`                // e.g., 115200
	ResponseTimeoutMs int    `yaml:"response_timeout_ms"` // parameter read round-trip timeout (ms)
}

// JoystickConfig describes the input device and which stick axes drive
// which gimbal channel. Axis names follow evdev convention in lowercase
// ("x", "y", "rx", "ry", ...).
type JoystickConfig struct {
	Device    string `yaml:"device"`     // event device path; empty = auto-discover
	YawAxis   string `yaml:"yaw_axis"`   // default "rx" (right stick horizontal)
	PitchAxis string `yaml:"pitch_axis"` // default "ry" (right stick vertical)
}

// ControlConfig holds the control loop tuning and the software limits.
// Limits are offsets from the gimbal's center calibration position,
// measured in its faux PWM units.
type ControlConfig struct {
	RateHz    float64 `yaml:"rate_hz"`    // tick rate (default 75)
	Deadzone  float64 `yaml:"deadzone"`   // full deadzone width in normalized units (default 0.3)
	YawGain   float64 `yaml:"yaw_gain"`   // yaw speed gain (default -300)
	PitchGain float64 `yaml:"pitch_gain"` // pitch velocity gain (default 200)
	YawMin    int     `yaml:"yaw_min"`    // yaw encoder lower limit (default 450)
	YawMax    int     `yaml:"yaw_max"`    // yaw encoder upper limit (default 3800)
	PitchMin  int     `yaml:"pitch_min"`  // pitch command lower limit (default 1000)
	PitchMax  int     `yaml:"pitch_max"`  // pitch command upper limit (default 2040)
}

// LEDConfig describes the optional status LED.
type LEDConfig struct {
	Pin int `yaml:"pin"` // BCM pin for the link-up LED. 0 = no LED.
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Joystick JoystickConfig `yaml:"joystick"`
	Control  ControlConfig  `yaml:"control"`
	LED      LEDConfig      `yaml:"led"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Defaults for zero values
	if cfg.Serial.Port == "" {
		cfg.Serial.Port = "/dev/ttyAMA0"
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if cfg.Serial.ResponseTimeoutMs == 0 {
		cfg.Serial.ResponseTimeoutMs = 500
	}
	if cfg.Joystick.YawAxis == "" {
		cfg.Joystick.YawAxis = "rx"
	}
	if cfg.Joystick.PitchAxis == "" {
		cfg.Joystick.PitchAxis = "ry"
	}
	if cfg.Control.RateHz == 0 {
		cfg.Control.RateHz = 75
	}
	if cfg.Control.Deadzone == 0 {
		cfg.Control.Deadzone = 0.3
	}
	if cfg.Control.YawGain == 0 {
		cfg.Control.YawGain = -300
	}
	if cfg.Control.PitchGain == 0 {
		cfg.Control.PitchGain = 200
	}
	if cfg.Control.YawMin == 0 && cfg.Control.YawMax == 0 {
		cfg.Control.YawMin = 450
		cfg.Control.YawMax = 3800
	}
	if cfg.Control.PitchMin == 0 && cfg.Control.PitchMax == 0 {
		cfg.Control.PitchMin = 1000
		cfg.Control.PitchMax = 2040
	}

	// Basic validation
	if cfg.Serial.Baud <= 0 {
		return nil, fmt.Errorf("serial.baud must be > 0, got %d", cfg.Serial.Baud)
	}
	if cfg.Serial.ResponseTimeoutMs <= 0 {
		return nil, fmt.Errorf("serial.response_timeout_ms must be > 0, got %d", cfg.Serial.ResponseTimeoutMs)
	}
	if cfg.Control.RateHz <= 0 {
		return nil, fmt.Errorf("control.rate_hz must be > 0, got %g", cfg.Control.RateHz)
	}
	if cfg.Control.Deadzone <= 0 || cfg.Control.Deadzone >= 1 {
		return nil, fmt.Errorf("control.deadzone must be inside (0, 1), got %g", cfg.Control.Deadzone)
	}
	if cfg.Control.YawMin >= cfg.Control.YawMax {
		return nil, fmt.Errorf("control.yaw_min must be < yaw_max, got %d >= %d", cfg.Control.YawMin, cfg.Control.YawMax)
	}
	if cfg.Control.PitchMin >= cfg.Control.PitchMax {
		return nil, fmt.Errorf("control.pitch_min must be < pitch_max, got %d >= %d", cfg.Control.PitchMin, cfg.Control.PitchMax)
	}
	if cfg.LED.Pin < 0 {
		return nil, fmt.Errorf("led.pin must be >= 0, got %d", cfg.LED.Pin)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// TickPeriod returns the control loop period (1/rate_hz).
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.Control.RateHz)
}

// ResponseTimeout returns the parameter read round-trip timeout.
func (c *Config) ResponseTimeout() time.Duration {
	return time.Duration(c.Serial.ResponseTimeoutMs) * time.Millisecond
}

// PitchMidpoint returns the middle of the pitch limits, the initial
// pitch command target.
func (c *Config) PitchMidpoint() float64 {
	return float64(c.Control.PitchMin+c.Control.PitchMax) / 2.0
}
