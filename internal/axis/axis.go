// Package axis turns raw analog stick voltages into normalized, shaped axis values.
//
// A stick axis is read as a Sample in millivolts. Calibrate measures the rest
// position once at startup, and Condition maps every later sample onto
// [-1.0, 1.0]: clamp, normalize around the calibrated center, suppress the dead
// zone, then apply the response curve. The dead zone always runs before the
// curve so shaping never turns suppressed noise back into motion.
package axis

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Sample is a raw analog reading in millivolts.
type Sample int

// Calibration holds the rest position of one axis and its static voltage limits.
// Center is measured, Min and Max are device limits.
type Calibration struct {
	Center Sample `json:"center"`
	Min    Sample `json:"min"`
	Max    Sample `json:"max"`
}

// String renders the calibration for logs.
func (c Calibration) String() string {
	return fmt.Sprintf("center=%dmV range=[%d,%d]mV", c.Center, c.Min, c.Max)
}

// scale is the larger half-range around the center, so a full deflection on the
// wider side maps to exactly 1.0.
func (c Calibration) scale() float64 {
	return float64(max(c.Max-c.Center, c.Center-c.Min))
}

// Condition maps a raw sample to a shaped value in [-1.0, 1.0].
//
// A sample equal to cal.Center always yields exactly 0.0, and any normalized
// value whose magnitude is below deadZone is forced to 0.0 before curveSoftness
// is applied.
func Condition(raw Sample, cal Calibration, deadZone, curveSoftness float64) float64 {
	return shape(Normalize(raw, cal), deadZone, curveSoftness)
}

// Normalize clamps raw into the calibrated limits and scales its deviation from
// the center into [-1.0, 1.0]. A zero scale yields 0.
func Normalize(raw Sample, cal Calibration) float64 {
	raw = clamp(raw, cal.Min, cal.Max)
	scale := cal.scale()
	if scale <= 0 {
		return 0
	}
	return clamp(float64(raw-cal.Center)/scale, -1, 1)
}

// Curve blends linear and quadratic response: softer near the center, unchanged
// at full deflection.
func Curve(v, softness float64) float64 {
	if v == 0 {
		return 0
	}
	a := math.Abs(v)
	out := clamp(a*(softness+(1-softness)*a), 0, 1)
	return math.Copysign(out, v)
}

func shape(v, deadZone, softness float64) float64 {
	if math.Abs(v) < deadZone {
		return 0
	}
	return Curve(v, softness)
}

// Conditioner bundles the per-axis shaping parameters so the same tuning is
// applied identically to every stick axis.
type Conditioner struct {
	DeadZone float64
	Softness float64
	// Invert flips the sign of the result after shaping.
	Invert bool
}

// Apply conditions raw against cal with the conditioner's parameters.
func (c Conditioner) Apply(raw Sample, cal Calibration) float64 {
	v := Condition(raw, cal, c.DeadZone, c.Softness)
	if c.Invert && v != 0 {
		return -v
	}
	return v
}

// ToInt8 quantizes a shaped value to the signed wire range -127..127.
func ToInt8(v float64) int8 {
	if math.IsNaN(v) {
		return 0
	}
	return int8(math.Round(clamp(v, -1, 1) * 127))
}

// ToTrigger quantizes a shaped value to the unsigned trigger range 0..255.
// Negative values read as released.
func ToTrigger(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

// clamp limits v to [lo, hi]; swapped bounds are tolerated.
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
