package joystick

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeDevice feeds scripted events to a Reader.
type fakeDevice struct {
	name   string
	axes   map[uint16]AxisInfo
	events chan Event

	mu     sync.Mutex
	closed bool
}

func newFakeDevice(name string, axes map[uint16]AxisInfo) *fakeDevice {
	return &fakeDevice{
		name:   name,
		axes:   axes,
		events: make(chan Event, 64),
	}
}

func (d *fakeDevice) Name() string              { return d.name }
func (d *fakeDevice) Axes() map[uint16]AxisInfo { return d.axes }

func (d *fakeDevice) Events(ctx context.Context) <-chan Event {
	return d.events
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// stickAxes covers an XBox-style right analog stick.
func stickAxes() map[uint16]AxisInfo {
	return map[uint16]AxisInfo{
		0x00: {Min: -32768, Max: 32767}, // x
		0x03: {Min: -32768, Max: 32767}, // rx
		0x04: {Min: -32768, Max: 32767}, // ry
	}
}

func startReader(t *testing.T, dev Device) (*Reader, context.CancelFunc) {
	t.Helper()
	r := NewReader(dev)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r, cancel
}

// waitFor polls until cond is true or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}

// ---------- Reader ----------

func TestReader_EmptyBeforeAnyEvent(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r, _ := startReader(t, dev)

	snap := r.State()
	if len(snap) != 0 {
		t.Errorf("expected empty snapshot, got %v", snap)
	}
	if v := snap.Axis("rx"); v != 0 {
		t.Errorf("missing axis should read 0, got %g", v)
	}
}

func TestReader_PendingInvisibleBeforeSync(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r, _ := startReader(t, dev)

	dev.events <- Event{Kind: EventAxis, Code: 0x03, Value: 32767}

	// Give the reader time to consume the event; it must not publish.
	time.Sleep(20 * time.Millisecond)
	if len(r.State()) != 0 {
		t.Errorf("axis visible before sync marker: %v", r.State())
	}

	dev.events <- Event{Kind: EventSync}
	waitFor(t, func() bool { return len(r.State()) == 1 })

	if v := r.State().Axis("rx"); v < 0.999 {
		t.Errorf("rx = %g, want ~1", v)
	}
}

func TestReader_CommitKeepsEarlierAxes(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r, _ := startReader(t, dev)

	dev.events <- Event{Kind: EventAxis, Code: 0x03, Value: 32767}
	dev.events <- Event{Kind: EventSync}
	waitFor(t, func() bool { return len(r.State()) == 1 })

	dev.events <- Event{Kind: EventAxis, Code: 0x04, Value: -32768}
	dev.events <- Event{Kind: EventSync}
	waitFor(t, func() bool { return len(r.State()) == 2 })

	snap := r.State()
	if v := snap.Axis("rx"); v < 0.999 {
		t.Errorf("rx = %g, want ~1 (earlier commit must survive)", v)
	}
	if v := snap.Axis("ry"); v > -0.999 {
		t.Errorf("ry = %g, want ~-1", v)
	}
}

func TestReader_UnknownAxisIgnored(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r, _ := startReader(t, dev)

	dev.events <- Event{Kind: EventAxis, Code: 0x2f, Value: 100} // not in capabilities
	dev.events <- Event{Kind: EventAxis, Code: 0x00, Value: 0}
	dev.events <- Event{Kind: EventSync}
	waitFor(t, func() bool { return len(r.State()) == 1 })

	if _, ok := r.State()["abs47"]; ok {
		t.Error("axis without capability info leaked into snapshot")
	}
}

func TestReader_KeyEventsGoToHook(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r := NewReader(dev)

	var mu sync.Mutex
	var keys []uint16
	r.OnKey = func(code uint16, value int32) {
		mu.Lock()
		keys = append(keys, code)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { defer close(done); _ = r.Run(ctx) }()
	defer func() { cancel(); <-done }()

	dev.events <- Event{Kind: EventKey, Code: 304, Value: 1}
	dev.events <- Event{Kind: EventSync}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(keys) == 1
	})

	if len(r.State()) != 0 {
		t.Errorf("key event must not publish axes, got %v", r.State())
	}
}

func TestReader_SnapshotAtomicity(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r, _ := startReader(t, dev)

	// rx and ry are always committed together with the same magnitude.
	// A torn read would observe different values for the two axes.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := r.State()
			if len(snap) == 0 {
				continue
			}
			rx, ry := snap.Axis("rx"), snap.Axis("ry")
			if rx != ry {
				t.Errorf("torn snapshot: rx=%g ry=%g", rx, ry)
				return
			}
		}
	}()

	values := []int32{-32768, -16384, 0, 16383, 32767}
	for i := 0; i < 500; i++ {
		v := values[i%len(values)]
		dev.events <- Event{Kind: EventAxis, Code: 0x03, Value: v}
		dev.events <- Event{Kind: EventAxis, Code: 0x04, Value: v}
		dev.events <- Event{Kind: EventSync}
	}

	waitFor(t, func() bool { return len(r.State()) == 2 })
	close(stop)
	wg.Wait()
}

func TestReader_StreamClosedIsFatal(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r := NewReader(dev)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background()) }()

	close(dev.events)

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected error when event stream closes, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stream close")
	}
}

func TestReader_CancelReturnsCtxErr(t *testing.T) {
	dev := newFakeDevice("pad", stickAxes())
	r := NewReader(dev)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ---------- Discovery ----------

func TestDiscover_PicksFirstWithAbsX(t *testing.T) {
	// Only the third device (by sorted name) has an absolute X axis.
	devices := map[string]*fakeDevice{
		"/dev/input/event0": newFakeDevice("keyboard", nil),
		"/dev/input/event1": newFakeDevice("mouse", map[uint16]AxisInfo{0x08: {Min: 0, Max: 255}}),
		"/dev/input/event2": newFakeDevice("gamepad", stickAxes()),
		"/dev/input/event3": newFakeDevice("other pad", stickAxes()),
	}

	list := func() ([]string, error) {
		return []string{"/dev/input/event0", "/dev/input/event1", "/dev/input/event2", "/dev/input/event3"}, nil
	}
	open := func(path string) (Device, error) {
		return devices[path], nil
	}

	dev, err := discover(list, open)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if dev.Name() != "gamepad" {
		t.Errorf("selected %q, want \"gamepad\"", dev.Name())
	}
	if !devices["/dev/input/event0"].isClosed() || !devices["/dev/input/event1"].isClosed() {
		t.Error("rejected candidates were not closed")
	}
	if devices["/dev/input/event2"].isClosed() {
		t.Error("selected device must stay open")
	}
}

func TestDiscover_OpenFailureSkipped(t *testing.T) {
	pad := newFakeDevice("pad", stickAxes())
	list := func() ([]string, error) {
		return []string{"/dev/input/event0", "/dev/input/event1"}, nil
	}
	open := func(path string) (Device, error) {
		if path == "/dev/input/event0" {
			return nil, errors.New("permission denied")
		}
		return pad, nil
	}

	dev, err := discover(list, open)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if dev.Name() != "pad" {
		t.Errorf("selected %q, want \"pad\"", dev.Name())
	}
}

func TestDiscover_NoneFound(t *testing.T) {
	list := func() ([]string, error) {
		return []string{"/dev/input/event0"}, nil
	}
	open := func(path string) (Device, error) {
		return newFakeDevice("keyboard", nil), nil
	}

	if _, err := discover(list, open); !errors.Is(err, ErrNoDevice) {
		t.Errorf("err = %v, want ErrNoDevice", err)
	}
}

// ---------- AxisName ----------

func TestAxisName(t *testing.T) {
	cases := []struct {
		code uint16
		want string
	}{
		{0x00, "x"},
		{0x03, "rx"},
		{0x04, "ry"},
		{0x10, "hat0x"},
		{0x2f, "abs47"},
	}
	for _, tc := range cases {
		if got := AxisName(tc.code); got != tc.want {
			t.Errorf("AxisName(%#x) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
