// Package input reads raw analog samples and button states from the controller
// hardware, or from stand-ins for it.
//
// Readers report failures as errors; deciding what a failed read means (the
// calibrated center, a released button) is the caller's job.
package input

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/axis"
	"github.com/srg/blepad/internal/report"
)

var (
	// ErrNoChannel is returned for a channel or pin the reader does not know.
	ErrNoChannel = errors.New("no such input")
	// ErrReadFailed marks a transient read failure.
	ErrReadFailed = errors.New("input read failed")
	// ErrNoLuaHandler is returned when a Lua input script defines neither an
	// axis nor a button function.
	ErrNoLuaHandler = errors.New("lua input script defines neither axis nor button")
)

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// AxisReader samples one analog channel, in millivolts.
type AxisReader interface {
	ReadAxis(channel int) (axis.Sample, error)
}

// ButtonReader samples one digital input. It returns true when the button is
// pressed; active-low wiring is resolved by the implementation.
type ButtonReader interface {
	ReadButton(pin int) (bool, error)
}

// Reader provides both.
type Reader interface {
	AxisReader
	ButtonReader
}

// Stepper is implemented by readers whose values advance with the sampling
// clock instead of wall time. The sampler calls Step once per tick.
type Stepper interface {
	Step()
}

// ReadButtons samples pins in order and sets bit i for a pressed pins[i]. A pin
// that fails to read counts as released; all failures are returned joined.
func ReadButtons(r ButtonReader, pins []int) (report.ButtonMask, error) {
	var (
		mask report.ButtonMask
		errs []error
	)
	for i, pin := range pins {
		pressed, err := r.ReadButton(pin)
		if err != nil {
			errs = append(errs, fmt.Errorf("button %d (pin %d): %w", i, pin, err))
			continue
		}
		if pressed {
			mask |= report.Bit(i)
		}
	}
	return mask, errors.Join(errs...)
}
