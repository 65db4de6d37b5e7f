package gimbal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/cjeanneret/FyGo/internal/debug"
)

// ErrResponseTimeout indicates that the gimbal did not answer a
// parameter read in time.
var ErrResponseTimeout = errors.New("gimbal response timeout")

// ErrClosed indicates the serial link was closed underneath a caller.
var ErrClosed = errors.New("gimbal link closed")

// Port is the host side of the serial link. A background goroutine
// reads the port, deframes the byte stream, and routes frames: the
// first valid frame of any kind marks the link connected (the gimbal
// streams continuously once powered), parameter-read responses are
// handed to the waiting caller, everything else is traced and dropped.
//
// Writes are serialized; parameter reads are one-at-a-time round trips.
type Port struct {
	rw          io.ReadWriteCloser
	respTimeout time.Duration

	writeMu sync.Mutex

	connectOnce sync.Once
	connected   chan struct{}

	reqMu     sync.Mutex // one outstanding parameter read at a time
	responses chan Frame

	done chan struct{}
}

// Open opens the serial device (8N1) and starts the receive loop.
func Open(device string, baud int, respTimeout time.Duration) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	debug.Info("Serial port %s open (%d baud)", device, baud)
	return NewPort(sp, respTimeout), nil
}

// NewPort wraps an already-open byte stream. Used directly by tests.
func NewPort(rw io.ReadWriteCloser, respTimeout time.Duration) *Port {
	p := &Port{
		rw:          rw,
		respTimeout: respTimeout,
		connected:   make(chan struct{}),
		responses:   make(chan Frame, 8),
		done:        make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *Port) readLoop() {
	defer close(p.done)

	var dec decoder
	buf := make([]byte, 256)
	for {
		n, err := p.rw.Read(buf)
		if n > 0 {
			for _, f := range dec.Feed(buf[:n]) {
				p.handleFrame(f)
			}
		}
		if err != nil {
			// Port closed or failed. Pending reads surface this as
			// ErrClosed via the done channel.
			return
		}
	}
}

func (p *Port) handleFrame(f Frame) {
	if debug.IsEnabled(debug.LevelTrace) {
		debug.Trace("rx frame target=%d cmd=%#02x data=% x", f.Target, f.Command, f.Data)
	}

	p.connectOnce.Do(func() {
		close(p.connected)
	})

	if f.Command == CmdGetParam {
		select {
		case p.responses <- f:
		default:
			// nobody waiting, drop
		}
	}
}

// WaitConnect blocks until the first valid frame arrives. There is no
// internal timeout: the gimbal may be powered on long after us, and we
// must simply be ready. Cancellation is the caller's business via ctx.
func (p *Port) WaitConnect(ctx context.Context) error {
	debug.Info("Waiting for gimbal link...")
	select {
	case <-p.connected:
		debug.Info("Gimbal link established")
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send frames and transmits a packet.
func (p *Port) Send(pkt Packet) error {
	frame := appendFrame(nil, pkt.Target, pkt.Command, pkt.Data)
	debug.Wire("tx", frame)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	n, err := p.rw.Write(frame)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// SetParam writes one int16 parameter on the given MCU target.
func (p *Port) SetParam(number uint8, target uint8, value int16) error {
	data := make([]byte, 3)
	data[0] = number
	binary.LittleEndian.PutUint16(data[1:], uint16(value))
	return p.Send(Packet{Target: target, Command: CmdSetParam, Data: data})
}

// SetVectorParam writes a three-component parameter, one component per
// MCU target in order (component i goes to target i).
func (p *Port) SetVectorParam(number uint8, value [3]int16) error {
	for i, v := range value {
		if err := p.SetParam(number, uint8(i), v); err != nil {
			return err
		}
	}
	return nil
}

// GetParam reads one int16 parameter from the given MCU target. This is
// a live round trip; a silent gimbal surfaces as ErrResponseTimeout.
func (p *Port) GetParam(number uint8, target uint8) (int16, error) {
	p.reqMu.Lock()
	defer p.reqMu.Unlock()

	// Drain stale responses left over from earlier timed-out requests.
	for {
		select {
		case <-p.responses:
			continue
		default:
		}
		break
	}

	if err := p.Send(Packet{Target: target, Command: CmdGetParam, Data: []byte{number}}); err != nil {
		return 0, err
	}

	timer := time.NewTimer(p.respTimeout)
	defer timer.Stop()
	for {
		select {
		case f := <-p.responses:
			if f.Target != target || len(f.Data) < 3 || f.Data[0] != number {
				// Response to something else, keep waiting.
				continue
			}
			return int16(binary.LittleEndian.Uint16(f.Data[1:])), nil
		case <-timer.C:
			return 0, fmt.Errorf("read param %#02x from target %d: %w", number, target, ErrResponseTimeout)
		case <-p.done:
			return 0, ErrClosed
		}
	}
}

// SetMotors enables or disables motor output.
func (p *Port) SetMotors(enabled bool) error {
	v := byte(0)
	if enabled {
		v = 1
	}
	debug.Verbose("Motors enabled=%v", enabled)
	return p.Send(Packet{Target: TargetYaw, Command: CmdMotors, Data: []byte{v}})
}

// Close closes the serial port and waits for the receive loop to stop.
func (p *Port) Close() error {
	err := p.rw.Close()
	<-p.done
	return err
}
