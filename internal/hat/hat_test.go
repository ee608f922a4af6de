package hat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAxes(t *testing.T) {
	const th = 0.3

	tests := []struct {
		name string
		x, y float64
		want Direction
	}{
		{"center", 0, 0, Center},
		{"inside threshold", 0.29, -0.29, Center},
		{"exactly threshold is not past it", 0.3, 0.3, Center},
		{"north", 0, -1, North},
		{"north east", 0.8, -0.8, NorthEast},
		{"east", 1, 0, East},
		{"south east", 0.5, 0.5, SouthEast},
		{"south", 0.1, 0.9, South},
		{"south west", -0.4, 0.4, SouthWest},
		{"west", -1, 0.2, West},
		{"north west", -0.31, -0.31, NorthWest},
		{"diagonal dominates weak cross axis", 1, -0.31, NorthEast},
		{"nan", math.NaN(), math.NaN(), Center},
		{"nan x keeps y", math.NaN(), -1, North},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromAxes(tt.x, tt.y, th))
		})
	}
}

func TestFromAxes_TotalAndFlagConsistent(t *testing.T) {
	const th = 0.3
	for x := -1.0; x <= 1.0; x += 0.05 {
		for y := -1.0; y <= 1.0; y += 0.05 {
			d := FromAxes(x, y, th)
			require.True(t, d.Valid(), "x=%v y=%v", x, y)

			f := d.Flags()
			assert.Equal(t, y < -th, f.Up, "up x=%v y=%v d=%s", x, y, d)
			assert.Equal(t, y > th, f.Down, "down x=%v y=%v d=%s", x, y, d)
			assert.Equal(t, x < -th, f.Left, "left x=%v y=%v d=%s", x, y, d)
			assert.Equal(t, x > th, f.Right, "right x=%v y=%v d=%s", x, y, d)
		}
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	for d := Center; d <= NorthWest; d++ {
		assert.Equal(t, d, FromFlags(d.Flags()), d.String())
	}
}

func TestFromFlags_OpposingCancel(t *testing.T) {
	assert.Equal(t, Center, FromFlags(Flags{Up: true, Down: true}))
	assert.Equal(t, East, FromFlags(Flags{Up: true, Down: true, Right: true}))
	assert.Equal(t, Center, FromFlags(Flags{Up: true, Down: true, Left: true, Right: true}))
}

func TestWireCode(t *testing.T) {
	codes := map[Direction]uint8{
		North: 0, NorthEast: 1, East: 2, SouthEast: 3,
		South: 4, SouthWest: 5, West: 6, NorthWest: 7,
		Center: 0x0F,
	}
	for d, want := range codes {
		got, ok := d.WireCode()
		require.True(t, ok)
		assert.Equal(t, want, got, d.String())

		back, ok := FromWireCode(got)
		require.True(t, ok)
		assert.Equal(t, d, back)
	}

	_, ok := Direction(9).WireCode()
	assert.False(t, ok)
	_, ok = FromWireCode(8)
	assert.False(t, ok)
	assert.Equal(t, "Direction(12)", Direction(12).String())
}

func TestDirectionText(t *testing.T) {
	for d := Center; d <= NorthWest; d++ {
		text, err := d.MarshalText()
		require.NoError(t, err)

		var back Direction
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, d, back)
	}

	var d Direction
	assert.Error(t, d.UnmarshalText([]byte("UP")))
	_, err := Direction(20).MarshalText()
	assert.Error(t, err)
}
