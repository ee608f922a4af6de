package report

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/blepad/internal/hat"
)

var (
	// ErrInvalidDirection is raised (as a panic) when a report carries a direction
	// outside the nine defined positions. It indicates a logic defect upstream.
	ErrInvalidDirection = errors.New("invalid hat direction")

	// ErrMalformedFrame is returned by Decode for frames that Encode could not
	// have produced.
	ErrMalformedFrame = errors.New("malformed report frame")

	// ErrUnknownLayout is returned by ParseLayout.
	ErrUnknownLayout = errors.New("unknown report layout")
)

// Layout selects one fixed wire format. It is chosen once by configuration and
// never changes per packet.
type Layout int

const (
	// Compact4 is the reference 4-byte layout:
	//
	//	byte 0: bits 0-3 buttons A, B, Select, Start; bits 4-7 reserved
	//	byte 1: bits 0-3 hat (0=N .. 7=NW, 15=center); bits 4-7 reserved
	//	byte 2: x, signed
	//	byte 3: y, signed
	Compact4 Layout = iota

	// Buttons5 widens the button field to 16 bits:
	//
	//	bytes 0-1: buttons, little-endian
	//	byte 2:    bits 0-3 hat; bits 4-7 reserved
	//	byte 3:    x, signed
	//	byte 4:    y, signed
	Buttons5

	// DualStick8 carries two sticks and two triggers and folds the hat into
	// the D-pad button bits:
	//
	//	bytes 0-1: buttons, little-endian
	//	bytes 2-3: left stick x, y
	//	bytes 4-5: right stick x, y
	//	bytes 6-7: left, right trigger
	DualStick8
)

var layoutNames = map[Layout]string{
	Compact4:   "compact4",
	Buttons5:   "buttons5",
	DualStick8: "dualstick8",
}

func (l Layout) String() string {
	if n, ok := layoutNames[l]; ok {
		return n
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// ParseLayout resolves a layout name as used in configuration.
func ParseLayout(s string) (Layout, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for l, n := range layoutNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (must be compact4, buttons5 or dualstick8)", ErrUnknownLayout, s)
}

// Size is the fixed frame length in bytes.
func (l Layout) Size() int {
	switch l {
	case Compact4:
		return 4
	case Buttons5:
		return 5
	case DualStick8:
		return 8
	default:
		return 0
	}
}

// MaxButtons is the number of logical buttons the layout can carry.
// DualStick8 reserves bits 10-13 for the D-pad.
func (l Layout) MaxButtons() int {
	switch l {
	case Compact4:
		return 4
	case Buttons5:
		return 16
	case DualStick8:
		return 10
	default:
		return 0
	}
}

// HasRightStick reports whether RX/RY and the triggers reach the wire.
func (l Layout) HasRightStick() bool {
	return l == DualStick8
}

func (l Layout) buttonMask() ButtonMask {
	switch l {
	case Compact4:
		return 0x0F
	case DualStick8:
		return Bit(10) - 1
	default:
		return 0xFFFF
	}
}

// Encode packs r into the layout's frame. The same report always yields the same
// bytes; reserved bits and buttons the layout cannot carry are zero.
//
// Encode panics with ErrInvalidDirection if r.Direction is not a defined
// position, and on an unknown layout.
func Encode(l Layout, r Report) []byte {
	code, ok := r.Direction.WireCode()
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(r.Direction)))
	}

	buttons := r.Buttons & l.buttonMask()
	frame := make([]byte, l.Size())

	switch l {
	case Compact4:
		frame[0] = byte(buttons)
		frame[1] = code
		frame[2] = byte(r.X)
		frame[3] = byte(r.Y)
	case Buttons5:
		binary.LittleEndian.PutUint16(frame[0:2], uint16(buttons))
		frame[2] = code
		frame[3] = byte(r.X)
		frame[4] = byte(r.Y)
	case DualStick8:
		binary.LittleEndian.PutUint16(frame[0:2], uint16(buttons|DPadMask(r.Direction)))
		frame[2] = byte(r.X)
		frame[3] = byte(r.Y)
		frame[4] = byte(r.RX)
		frame[5] = byte(r.RY)
		frame[6] = r.LT
		frame[7] = r.RT
	default:
		panic(fmt.Sprintf("report: encode with unknown layout %d", int(l)))
	}

	return frame
}

// Decode parses a frame produced by Encode. Fields the layout does not carry are
// left zero.
func Decode(l Layout, frame []byte) (Report, error) {
	var r Report

	size := l.Size()
	if size == 0 {
		return r, fmt.Errorf("%w: %s", ErrUnknownLayout, l)
	}
	if len(frame) != size {
		return r, fmt.Errorf("%w: %s frame is %d bytes, got %d", ErrMalformedFrame, l, size, len(frame))
	}

	switch l {
	case Compact4:
		if frame[0]&0xF0 != 0 || frame[1]&0xF0 != 0 {
			return r, fmt.Errorf("%w: reserved bits set", ErrMalformedFrame)
		}
		r.Buttons = ButtonMask(frame[0])
		dir, err := decodeHat(frame[1])
		if err != nil {
			return r, err
		}
		r.Direction = dir
		r.X = int8(frame[2])
		r.Y = int8(frame[3])
	case Buttons5:
		if frame[2]&0xF0 != 0 {
			return r, fmt.Errorf("%w: reserved bits set", ErrMalformedFrame)
		}
		r.Buttons = ButtonMask(binary.LittleEndian.Uint16(frame[0:2]))
		dir, err := decodeHat(frame[2])
		if err != nil {
			return r, err
		}
		r.Direction = dir
		r.X = int8(frame[3])
		r.Y = int8(frame[4])
	case DualStick8:
		word := ButtonMask(binary.LittleEndian.Uint16(frame[0:2]))
		if word&^(l.buttonMask()|dpadMask) != 0 {
			return r, fmt.Errorf("%w: reserved button bits set", ErrMalformedFrame)
		}
		r.Buttons = word & l.buttonMask()
		r.Direction = directionFromDPad(word)
		r.X = int8(frame[2])
		r.Y = int8(frame[3])
		r.RX = int8(frame[4])
		r.RY = int8(frame[5])
		r.LT = frame[6]
		r.RT = frame[7]
	}

	return r, nil
}

func decodeHat(b byte) (hat.Direction, error) {
	dir, ok := hat.FromWireCode(b & 0x0F)
	if !ok {
		return hat.Center, fmt.Errorf("%w: hat code %d", ErrMalformedFrame, b&0x0F)
	}
	return dir, nil
}
