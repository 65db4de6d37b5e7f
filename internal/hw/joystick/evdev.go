package joystick

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kenshaw/evdev"

	"github.com/cjeanneret/FyGo/internal/debug"
)

// evdevDevice adapts a kernel evdev device to the Device interface.
type evdevDevice struct {
	dev *evdev.Evdev
}

// Open opens the event device at path.
func Open(path string) (Device, error) {
	d, err := evdev.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &evdevDevice{dev: d}, nil
}

func (d *evdevDevice) Name() string {
	return d.dev.Name()
}

func (d *evdevDevice) Axes() map[uint16]AxisInfo {
	axes := make(map[uint16]AxisInfo)
	for code, info := range d.dev.AbsoluteTypes() {
		axes[uint16(code)] = AxisInfo{Min: info.Min, Max: info.Max}
	}
	return axes
}

// Events decodes the raw evdev stream into Events. The channel closes
// when the device goes away or ctx is cancelled.
func (d *evdevDevice) Events(ctx context.Context) <-chan Event {
	out := make(chan Event)
	in := d.dev.Poll(ctx)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok || ev == nil {
					// device disappeared
					return
				}
				var e Event
				switch ev.Event.Type {
				case evdev.EventAbsolute:
					e = Event{Kind: EventAxis, Code: ev.Event.Code, Value: ev.Event.Value}
				case evdev.EventKey:
					e = Event{Kind: EventKey, Code: ev.Event.Code, Value: ev.Event.Value}
				case evdev.EventSync:
					e = Event{Kind: EventSync}
				default:
					e = Event{Kind: EventOther, Code: ev.Event.Code, Value: ev.Event.Value}
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (d *evdevDevice) Close() error {
	return d.dev.Close()
}

// Discover scans /dev/input/event* in sorted order and returns the
// first device advertising an absolute X axis. Every other candidate
// is closed again. Returns ErrNoDevice when nothing qualifies.
func Discover() (Device, error) {
	return discover(listEventDevices, Open)
}

func listEventDevices() ([]string, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func discover(list func() ([]string, error), open func(string) (Device, error)) (Device, error) {
	paths, err := list()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	for _, path := range paths {
		dev, err := open(path)
		if err != nil {
			debug.Verbose("Skipping %s: %v", path, err)
			continue
		}
		if _, ok := dev.Axes()[AbsX]; ok {
			debug.Info("Selected joystick %q (%s)", dev.Name(), path)
			return dev, nil
		}
		_ = dev.Close()
	}

	return nil, ErrNoDevice
}
