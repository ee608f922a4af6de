// Package report builds gamepad HID input reports, encodes them into the fixed
// wire layouts and decides when a report has to go out.
package report

import (
	"fmt"
	"strings"

	"github.com/srg/blepad/internal/hat"
)

// ButtonMask holds one bit per logical button; a set bit means pressed.
type ButtonMask uint16

// Buttons of the reference four-button pad, in wire order.
const (
	ButtonA ButtonMask = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
)

// D-pad bits used by layouts without a hat field (HID buttons 11-14).
const (
	ButtonDPadUp ButtonMask = 1 << (10 + iota)
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight

	dpadMask = ButtonDPadUp | ButtonDPadDown | ButtonDPadLeft | ButtonDPadRight
)

// Bit returns the mask for the button at index i (0-based).
func Bit(i int) ButtonMask {
	if i < 0 || i > 15 {
		return 0
	}
	return 1 << i
}

// Pressed reports whether every bit of b is set in m.
func (m ButtonMask) Pressed(b ButtonMask) bool {
	return b != 0 && m&b == b
}

// DPadMask projects a hat direction onto the four D-pad button bits.
func DPadMask(d hat.Direction) ButtonMask {
	f := d.Flags()
	var m ButtonMask
	if f.Up {
		m |= ButtonDPadUp
	}
	if f.Down {
		m |= ButtonDPadDown
	}
	if f.Left {
		m |= ButtonDPadLeft
	}
	if f.Right {
		m |= ButtonDPadRight
	}
	return m
}

// directionFromDPad is the inverse of DPadMask.
func directionFromDPad(m ButtonMask) hat.Direction {
	return hat.FromFlags(hat.Flags{
		Up:    m&ButtonDPadUp != 0,
		Down:  m&ButtonDPadDown != 0,
		Left:  m&ButtonDPadLeft != 0,
		Right: m&ButtonDPadRight != 0,
	})
}

// Report is the logical gamepad state of one sampling tick.
//
// Layouts carry the fields they have room for: X/Y is the primary stick,
// RX/RY and the triggers exist only in the dual-stick layout.
type Report struct {
	Buttons   ButtonMask    `json:"buttons"`
	Direction hat.Direction `json:"direction"`
	X         int8          `json:"x"`
	Y         int8          `json:"y"`
	RX        int8          `json:"rx"`
	RY        int8          `json:"ry"`
	LT        uint8         `json:"lt"`
	RT        uint8         `json:"rt"`
}

// Held reports whether any button is pressed.
func (r Report) Held() bool {
	return r.Buttons != 0
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "buttons=%#04x dir=%s x=%d y=%d", uint16(r.Buttons), r.Direction, r.X, r.Y)
	if r.RX != 0 || r.RY != 0 || r.LT != 0 || r.RT != 0 {
		fmt.Fprintf(&b, " rx=%d ry=%d lt=%d rt=%d", r.RX, r.RY, r.LT, r.RT)
	}
	return b.String()
}
