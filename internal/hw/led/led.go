package led

import (
	"github.com/cjeanneret/FyGo/internal/debug"
	"github.com/cjeanneret/FyGo/internal/hw/gpio"
)

// Indicator drives a single active-high status LED. It is lit once the
// gimbal link is up and motors are enabled, and turned off on shutdown.
// A zero pin disables the indicator entirely (all methods are no-ops).
type Indicator struct {
	gpio gpio.Driver
	pin  int
}

// NewIndicator creates an indicator on the given BCM pin. pin <= 0
// returns a disabled indicator.
func NewIndicator(g gpio.Driver, pin int) *Indicator {
	ind := &Indicator{gpio: g, pin: pin}
	if pin > 0 {
		_ = g.SetupOutput(pin)
		_ = g.WritePin(pin, gpio.Low)
	}
	return ind
}

// On lights the LED.
func (i *Indicator) On() error {
	if i.pin <= 0 {
		return nil
	}
	debug.Verbose("Status LED on (pin %d)", i.pin)
	return i.gpio.WritePin(i.pin, gpio.High)
}

// Off extinguishes the LED. Called on shutdown to leave a defined state.
func (i *Indicator) Off() error {
	if i.pin <= 0 {
		return nil
	}
	debug.Verbose("Status LED off (pin %d)", i.pin)
	return i.gpio.WritePin(i.pin, gpio.Low)
}
