// Package hat discretizes a 2D stick position into an 8-way hat switch code.
package hat

import "fmt"

// Direction is a hat switch position. The zero value is Center.
type Direction uint8

const (
	Center Direction = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// NullCode is the wire value of Center in HID hat switch fields.
const NullCode = 0x0F

var names = [...]string{
	Center:    "C",
	North:     "N",
	NorthEast: "NE",
	East:      "E",
	SouthEast: "SE",
	South:     "S",
	SouthWest: "SW",
	West:      "W",
	NorthWest: "NW",
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return names[d]
}

// MarshalText renders d by its compass name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("hat: invalid direction %d", uint8(d))
	}
	return []byte(names[d]), nil
}

// UnmarshalText parses a compass name as produced by MarshalText.
func (d *Direction) UnmarshalText(text []byte) error {
	for i, n := range names {
		if n == string(text) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("hat: unknown direction %q", text)
}

// Valid reports whether d is one of the nine defined positions.
func (d Direction) Valid() bool {
	return d <= NorthWest
}

// WireCode returns the 4-bit hat value: 0 for North clockwise to 7 for
// NorthWest, NullCode for Center. The second result is false for an invalid d.
func (d Direction) WireCode() (uint8, bool) {
	switch {
	case d == Center:
		return NullCode, true
	case d.Valid():
		return uint8(d - North), true
	default:
		return 0, false
	}
}

// FromWireCode is the inverse of WireCode.
func FromWireCode(code uint8) (Direction, bool) {
	switch {
	case code == NullCode:
		return Center, true
	case code <= 7:
		return North + Direction(code), true
	default:
		return Center, false
	}
}

// Flags are the four digital directions a stick position resolves to.
// Up is negative y.
type Flags struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

// Flags returns the directions implied by d.
func (d Direction) Flags() Flags {
	switch d {
	case North:
		return Flags{Up: true}
	case NorthEast:
		return Flags{Up: true, Right: true}
	case East:
		return Flags{Right: true}
	case SouthEast:
		return Flags{Down: true, Right: true}
	case South:
		return Flags{Down: true}
	case SouthWest:
		return Flags{Down: true, Left: true}
	case West:
		return Flags{Left: true}
	case NorthWest:
		return Flags{Up: true, Left: true}
	default:
		return Flags{}
	}
}

// FromAxes maps conditioned stick values to a direction. A flag is raised when
// its axis passes threshold; diagonals win over single axes. Every input maps to
// exactly one direction, NaN included (it compares false and reads as Center).
func FromAxes(x, y, threshold float64) Direction {
	return FromFlags(Flags{
		Up:    y < -threshold,
		Down:  y > threshold,
		Left:  x < -threshold,
		Right: x > threshold,
	})
}

// FromFlags resolves four digital directions into a hat position. Opposing
// flags cancel each other out.
func FromFlags(f Flags) Direction {
	vertical := 0
	if f.Up {
		vertical--
	}
	if f.Down {
		vertical++
	}
	horizontal := 0
	if f.Left {
		horizontal--
	}
	if f.Right {
		horizontal++
	}

	switch {
	case vertical < 0 && horizontal > 0:
		return NorthEast
	case vertical < 0 && horizontal < 0:
		return NorthWest
	case vertical > 0 && horizontal > 0:
		return SouthEast
	case vertical > 0 && horizontal < 0:
		return SouthWest
	case vertical < 0:
		return North
	case vertical > 0:
		return South
	case horizontal > 0:
		return East
	case horizontal < 0:
		return West
	default:
		return Center
	}
}
