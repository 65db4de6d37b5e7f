// Package session composes the joystick reader and the control loop
// into one running teleoperation session with a defined shutdown.
package session

import (
	"context"
	"errors"

	"github.com/cjeanneret/FyGo/internal/debug"
)

// Runner is a long-running activity stopped via its context.
// Both joystick.Reader and motion.Loop satisfy it.
type Runner interface {
	Run(ctx context.Context) error
}

// MotorSwitch is the part of the gimbal link the shutdown path needs.
type MotorSwitch interface {
	SetMotors(enabled bool) error
}

// Indicator is the part of the status LED the session drives.
type Indicator interface {
	On() error
	Off() error
}

// Session runs the reader and the loop concurrently. The first failure
// of either cancels the other; shutdown then disables the motors and
// the LED regardless of how the session ended.
type Session struct {
	reader Runner
	loop   Runner
	motors MotorSwitch
	led    Indicator
}

// New assembles a session. led may be nil.
func New(reader, loop Runner, motors MotorSwitch, led Indicator) *Session {
	return &Session{
		reader: reader,
		loop:   loop,
		motors: motors,
		led:    led,
	}
}

// Run blocks until ctx is cancelled or either activity fails. A clean
// cancellation returns nil; any other failure is returned after the
// shutdown steps ran.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- s.reader.Run(ctx) }()
	go func() { errCh <- s.loop.Run(ctx) }()

	// First exit decides the outcome; the cancel tears down the other.
	err := <-errCh
	cancel()
	<-errCh

	s.shutdown()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// shutdown leaves the hardware in a defined state: motors off, LED off.
// Best effort; the link may already be gone.
func (s *Session) shutdown() {
	debug.Info("Shutting down: motors off")
	if err := s.motors.SetMotors(false); err != nil {
		debug.Error(err)
	}
	if s.led != nil {
		if err := s.led.Off(); err != nil {
			debug.Error(err)
		}
	}
}
