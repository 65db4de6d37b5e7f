package joystick

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/cjeanneret/FyGo/internal/debug"
	"github.com/cjeanneret/FyGo/internal/logic/mapping"
)

// Reader aggregates raw axis events into published snapshots. Axis
// changes accumulate in a pending buffer; a synchronization marker
// commits them all at once into a fresh immutable Snapshot, swapped in
// with an atomic pointer store. The control loop reads snapshots
// lock-free and never observes a half-committed update burst.
//
// Reader is single-writer: only Run touches the pending buffer and the
// publish pointer.
type Reader struct {
	dev     Device
	axes    map[uint16]AxisInfo
	pending map[uint16]int32

	snap atomic.Pointer[Snapshot]

	// OnKey, when set, receives button events. Nil logs them.
	OnKey func(code uint16, value int32)
}

// NewReader creates a reader over an opened device. Run must be started
// for snapshots to ever change.
func NewReader(dev Device) *Reader {
	r := &Reader{
		dev:     dev,
		axes:    dev.Axes(),
		pending: make(map[uint16]int32),
	}
	empty := Snapshot{}
	r.snap.Store(&empty)
	return r
}

// State returns the most recently published snapshot. Non-blocking.
func (r *Reader) State() Snapshot {
	return *r.snap.Load()
}

// Run consumes the device event stream until ctx is cancelled or the
// device goes away. A vanished device is fatal, matching the rest of
// the control path.
func (r *Reader) Run(ctx context.Context) error {
	events := r.dev.Events(ctx)

	// Raw values committed so far, cumulative across bursts.
	committed := make(map[uint16]int32)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errors.New("joystick event stream closed")
			}
			switch ev.Kind {
			case EventAxis:
				r.pending[ev.Code] = ev.Value
			case EventKey:
				if r.OnKey != nil {
					r.OnKey(ev.Code, ev.Value)
				} else {
					debug.Verbose("Key event: code=%d value=%d", ev.Code, ev.Value)
				}
			case EventSync:
				if len(r.pending) == 0 {
					continue
				}
				for code, value := range r.pending {
					committed[code] = value
				}
				r.pending = make(map[uint16]int32)
				r.publish(committed)
			}
		}
	}
}

// publish normalizes the committed raw values into a new snapshot and
// swaps it in.
func (r *Reader) publish(committed map[uint16]int32) {
	snap := make(Snapshot, len(committed))
	for code, raw := range committed {
		info, ok := r.axes[code]
		if !ok || info.Max == info.Min {
			continue
		}
		snap[AxisName(code)] = mapping.Normalize(raw, info.Min, info.Max)
	}
	r.snap.Store(&snap)
	if debug.IsEnabled(debug.LevelVerbose) {
		debug.Verbose("Snapshot: %v", snap)
	}
}
