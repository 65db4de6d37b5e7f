// Package joystick reads an evdev input device and publishes coherent
// snapshots of its absolute axes, normalized onto [-1, 1].
package joystick

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoDevice indicates that no qualifying joystick was found at discovery.
var ErrNoDevice = errors.New("no joystick device found")

// AbsX is the evdev code of the horizontal absolute axis used to
// recognize a joystick during discovery.
const AbsX uint16 = 0x00

// AxisInfo is the raw value range an axis reports, fixed at discovery.
type AxisInfo struct {
	Min int32
	Max int32
}

// Snapshot maps axis names to the latest normalized value in [-1, 1].
// Axes that never reported an event are absent.
type Snapshot map[string]float64

// Axis returns the value for the named axis, or 0 when absent.
func (s Snapshot) Axis(name string) float64 {
	return s[name]
}

// EventKind classifies decoded input events.
type EventKind int

const (
	EventAxis EventKind = iota // absolute axis value change
	EventKey                   // button press/release
	EventSync                  // synchronization marker, ends an update burst
	EventOther                 // anything else, ignored by the control path
)

// Event is one decoded input event.
type Event struct {
	Kind  EventKind
	Code  uint16
	Value int32
}

// Device abstracts an input device: its identity, its absolute axis
// capabilities, and its event stream. Implemented by the evdev layer
// and by fakes in tests.
type Device interface {
	Name() string
	Axes() map[uint16]AxisInfo
	Events(ctx context.Context) <-chan Event
	Close() error
}

// axisNames maps evdev absolute codes to the short lowercase names used
// in configuration ("yaw_axis: rx").
var axisNames = map[uint16]string{
	0x00: "x",
	0x01: "y",
	0x02: "z",
	0x03: "rx",
	0x04: "ry",
	0x05: "rz",
	0x06: "throttle",
	0x07: "rudder",
	0x08: "wheel",
	0x09: "gas",
	0x0a: "brake",
	0x10: "hat0x",
	0x11: "hat0y",
	0x12: "hat1x",
	0x13: "hat1y",
	0x14: "hat2x",
	0x15: "hat2y",
	0x16: "hat3x",
	0x17: "hat3y",
}

// AxisName returns the configuration name for an absolute axis code.
func AxisName(code uint16) string {
	if name, ok := axisNames[code]; ok {
		return name
	}
	return fmt.Sprintf("abs%d", code)
}
