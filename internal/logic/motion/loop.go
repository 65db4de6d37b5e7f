// Package motion holds the real-time control loop converting joystick
// snapshots into gimbal commands.
package motion

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/FyGo/internal/debug"
	"github.com/cjeanneret/FyGo/internal/hw/gimbal"
	"github.com/cjeanneret/FyGo/internal/hw/joystick"
	"github.com/cjeanneret/FyGo/internal/logic/mapping"
)

// Link is the consumer-side view of the gimbal transport. Implemented
// by gimbal.Port; tests inject a fake.
type Link interface {
	WaitConnect(ctx context.Context) error
	SetVectorParam(number uint8, value [3]int16) error
	SetParam(number uint8, target uint8, value int16) error
	GetParam(number uint8, target uint8) (int16, error)
	SetMotors(enabled bool) error
	Send(pkt gimbal.Packet) error
}

// StickSource provides the latest joystick snapshot. Implemented by
// joystick.Reader.
type StickSource interface {
	State() joystick.Snapshot
}

// Params tunes the loop. NewLoop fills zero values with the defaults
// matching the 1.15 firmware and an XBox 360 right stick.
type Params struct {
	RateHz        float64
	DeadzoneWidth float64

	YawGain   float64 // negative: stick right turns clockwise
	PitchGain float64

	YawMin, YawMax     int16 // yaw encoder soft limits
	PitchMin, PitchMax float64

	YawAxis   string
	PitchAxis string
}

func (p *Params) applyDefaults() {
	if p.RateHz == 0 {
		p.RateHz = 75
	}
	if p.DeadzoneWidth == 0 {
		p.DeadzoneWidth = 0.3
	}
	if p.YawGain == 0 {
		p.YawGain = -300
	}
	if p.PitchGain == 0 {
		p.PitchGain = 200
	}
	if p.YawMin == 0 && p.YawMax == 0 {
		p.YawMin, p.YawMax = 450, 3800
	}
	if p.PitchMin == 0 && p.PitchMax == 0 {
		p.PitchMin, p.PitchMax = 1000, 2040
	}
	if p.YawAxis == "" {
		p.YawAxis = "rx"
	}
	if p.PitchAxis == "" {
		p.PitchAxis = "ry"
	}
}

// Status is the per-tick telemetry handed to OnStatus.
type Status struct {
	Yaw        int16   `json:"yaw"`         // yaw encoder position
	YawSpeed   int16   `json:"yaw_speed"`   // commanded yaw speed
	Pitch      float64 `json:"pitch"`       // integrated pitch command target
	PitchSpeed float64 `json:"pitch_speed"` // pitch velocity this tick
}

// Loop drives the gimbal from stick snapshots at a fixed rate.
//
// The pitch command target is integrated locally and clamped into its
// limits; that clamp is the sole anti-runaway mechanism. Yaw is a speed
// command with an open-loop interlock against the live encoder: at or
// past a limit, a speed pushing further out is forced to zero for that
// tick.
type Loop struct {
	link   Link
	stick  StickSource
	params Params

	pitch float64 // owned by Run, never touched elsewhere

	// OnReady fires once the init sequence completed and motors are on.
	OnReady func()
	// OnStatus receives per-tick telemetry.
	OnStatus func(Status)
}

// NewLoop builds a loop; zero param fields fall back to defaults.
func NewLoop(link Link, stick StickSource, params Params) *Loop {
	params.applyDefaults()
	return &Loop{
		link:   link,
		stick:  stick,
		params: params,
	}
}

// Run performs the one-time init sequence and then ticks until ctx is
// cancelled or the transport fails. Transport errors are fatal and
// returned as-is; there is no local retry.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.setup(ctx); err != nil {
		return err
	}

	period := time.Duration(float64(time.Second) / l.params.RateHz)
	for {
		// Fixed-period pacing, not drift-corrected: under load, ticks
		// lag rather than bunch up.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(period):
		}
		if err := l.tick(); err != nil {
			return err
		}
	}
}

// setup readies the gimbal: wait for the link, pick the follow-loop
// topology, clear stale follow velocity, power the motors.
func (l *Loop) setup(ctx context.Context) error {
	// The gimbal may be powered on after us; be ready whenever it is.
	if err := l.link.WaitConnect(ctx); err != nil {
		return err
	}

	// Yaw follow off so we can command its speed directly; pitch (and
	// roll) follow on so joystick packets steer the pitch follow loop.
	// With pitch follow off it would just hold the center calibration
	// coordinate.
	if err := l.link.SetVectorParam(gimbal.ParamFollowEnable, [3]int16{0, 1, 1}); err != nil {
		return fmt.Errorf("set follow enable: %w", err)
	}

	// The write above leaves stale velocity output behind.
	if err := l.link.SetVectorParam(gimbal.ParamFollowVel, [3]int16{0, 0, 0}); err != nil {
		return fmt.Errorf("zero follow velocity: %w", err)
	}

	if err := l.link.SetMotors(true); err != nil {
		return fmt.Errorf("enable motors: %w", err)
	}

	l.pitch = (l.params.PitchMin + l.params.PitchMax) / 2

	debug.Info("Control loop ready: %g Hz, pitch start %g", l.params.RateHz, l.pitch)
	if l.OnReady != nil {
		l.OnReady()
	}
	return nil
}

func (l *Loop) tick() error {
	p := &l.params
	controls := l.stick.State()

	// Yaw: cubic response for fine control near center, scaled to an
	// integer speed in firmware units.
	yawSpeed := int16(mapping.Cube(mapping.Deadzone(controls.Axis(p.YawAxis), p.DeadzoneWidth)) * p.YawGain)

	// Pitch: stick deflection is a velocity; integrate locally and
	// clamp. No decay back to center when the stick is released.
	pitchSpeed := mapping.Deadzone(controls.Axis(p.PitchAxis), p.DeadzoneWidth) * p.PitchGain
	l.pitch = mapping.Clamp(l.pitch+pitchSpeed/p.RateHz, p.PitchMin, p.PitchMax)

	// Joystick packets ride the MCU chain; the pitch MCU treats them
	// like input from the PWM port.
	err := l.link.Send(gimbal.Packet{
		Target:  gimbal.TargetRoll,
		Command: gimbal.CmdControl,
		Data:    gimbal.ControlData(int16(l.pitch)),
	})
	if err != nil {
		return fmt.Errorf("send control packet: %w", err)
	}

	// Our absolute notion of yaw relative to the body is the magnetic
	// encoder on the yaw axis; read it live every tick.
	currentYaw, err := l.link.GetParam(gimbal.ParamYawEncoder, gimbal.TargetYaw)
	if err != nil {
		return fmt.Errorf("read yaw encoder: %w", err)
	}

	// Open-loop limiting: only refuses to push further out this tick,
	// it does not correct an already-exceeded position.
	if currentYaw <= p.YawMin && yawSpeed < 0 {
		yawSpeed = 0
	}
	if currentYaw >= p.YawMax && yawSpeed > 0 {
		yawSpeed = 0
	}

	if err := l.link.SetParam(gimbal.ParamFollowVel, gimbal.TargetYaw, yawSpeed); err != nil {
		return fmt.Errorf("set yaw speed: %w", err)
	}

	debug.Tick(currentYaw, yawSpeed, l.pitch, pitchSpeed)
	if l.OnStatus != nil {
		l.OnStatus(Status{
			Yaw:        currentYaw,
			YawSpeed:   yawSpeed,
			Pitch:      l.pitch,
			PitchSpeed: pitchSpeed,
		})
	}
	return nil
}
