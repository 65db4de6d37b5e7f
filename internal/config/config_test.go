package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------- Load ----------

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyUSB0
  baud: 57600
  response_timeout_ms: 250
joystick:
  device: /dev/input/event3
  yaw_axis: x
  pitch_axis: y
control:
  rate_hz: 50
  deadzone: 0.2
  yaw_gain: -150
  pitch_gain: 100
  yaw_min: 500
  yaw_max: 3500
  pitch_min: 1100
  pitch_max: 1900
led:
  pin: 21
defaults:
  debug_level: 3
  mock_gpio: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB0" {
		t.Errorf("port = %q, want /dev/ttyUSB0", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 57600 {
		t.Errorf("baud = %d, want 57600", cfg.Serial.Baud)
	}
	if cfg.Joystick.YawAxis != "x" || cfg.Joystick.PitchAxis != "y" {
		t.Errorf("axes = %q/%q, want x/y", cfg.Joystick.YawAxis, cfg.Joystick.PitchAxis)
	}
	if cfg.Control.RateHz != 50 {
		t.Errorf("rate_hz = %g, want 50", cfg.Control.RateHz)
	}
	if cfg.Control.YawMin != 500 || cfg.Control.YawMax != 3500 {
		t.Errorf("yaw limits = (%d, %d), want (500, 3500)", cfg.Control.YawMin, cfg.Control.YawMax)
	}
	if cfg.LED.Pin != 21 {
		t.Errorf("led pin = %d, want 21", cfg.LED.Pin)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyAMA0" {
		t.Errorf("default port = %q, want /dev/ttyAMA0", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("default baud = %d, want 115200", cfg.Serial.Baud)
	}
	if cfg.Joystick.YawAxis != "rx" || cfg.Joystick.PitchAxis != "ry" {
		t.Errorf("default axes = %q/%q, want rx/ry", cfg.Joystick.YawAxis, cfg.Joystick.PitchAxis)
	}
	if cfg.Control.RateHz != 75 {
		t.Errorf("default rate_hz = %g, want 75", cfg.Control.RateHz)
	}
	if cfg.Control.Deadzone != 0.3 {
		t.Errorf("default deadzone = %g, want 0.3", cfg.Control.Deadzone)
	}
	if cfg.Control.YawGain != -300 || cfg.Control.PitchGain != 200 {
		t.Errorf("default gains = %g/%g, want -300/200", cfg.Control.YawGain, cfg.Control.PitchGain)
	}
	if cfg.Control.YawMin != 450 || cfg.Control.YawMax != 3800 {
		t.Errorf("default yaw limits = (%d, %d), want (450, 3800)", cfg.Control.YawMin, cfg.Control.YawMax)
	}
	if cfg.Control.PitchMin != 1000 || cfg.Control.PitchMax != 2040 {
		t.Errorf("default pitch limits = (%d, %d), want (1000, 2040)", cfg.Control.PitchMin, cfg.Control.PitchMax)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "serial: [unclosed")); err == nil {
		t.Error("expected error for bad yaml, got nil")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"negative_rate", "control:\n  rate_hz: -10\n"},
		{"deadzone_too_wide", "control:\n  deadzone: 1.0\n"},
		{"deadzone_negative", "control:\n  deadzone: -0.1\n"},
		{"yaw_limits_inverted", "control:\n  yaw_min: 3800\n  yaw_max: 450\n"},
		{"pitch_limits_inverted", "control:\n  pitch_min: 2040\n  pitch_max: 1000\n"},
		{"negative_baud", "serial:\n  baud: -1\n"},
		{"negative_led_pin", "led:\n  pin: -4\n"},
		{"debug_level_too_high", "defaults:\n  debug_level: 9\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// ---------- Accessors ----------

func TestTickPeriod(t *testing.T) {
	cfg := &Config{Control: ControlConfig{RateHz: 75}}
	got := cfg.TickPeriod()
	want := time.Second / 75
	if got != want {
		t.Errorf("TickPeriod = %v, want %v", got, want)
	}
}

func TestResponseTimeout(t *testing.T) {
	cfg := &Config{Serial: SerialConfig{ResponseTimeoutMs: 500}}
	if got := cfg.ResponseTimeout(); got != 500*time.Millisecond {
		t.Errorf("ResponseTimeout = %v, want 500ms", got)
	}
}

func TestPitchMidpoint(t *testing.T) {
	cfg := &Config{Control: ControlConfig{PitchMin: 1000, PitchMax: 2040}}
	if got := cfg.PitchMidpoint(); got != 1520 {
		t.Errorf("PitchMidpoint = %g, want 1520", got)
	}
}
