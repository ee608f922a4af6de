package axis

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// ReadFunc reads one raw sample from an axis.
type ReadFunc func() (Sample, error)

// CalibrateOptions configures the startup calibration of one axis.
type CalibrateOptions struct {
	Samples  int           // number of readings averaged into the center
	Delay    time.Duration // spacing between readings
	Min      Sample        // static lower voltage limit
	Max      Sample        // static upper voltage limit
	Fallback Sample        // neutral value substituted for failed readings
}

// DefaultCalibrateOptions returns the limits of a 3.3 V stick sampled ten times,
// 10 ms apart.
func DefaultCalibrateOptions() *CalibrateOptions {
	return &CalibrateOptions{
		Samples:  10,
		Delay:    10 * time.Millisecond,
		Min:      0,
		Max:      3300,
		Fallback: 1650,
	}
}

// Calibrate averages opts.Samples readings taken while the stick is assumed at
// rest and returns them as the axis center.
//
// Calibrate never fails: a reading that errors contributes opts.Fallback, so a
// disconnected sensor still produces a usable (neutral) calibration. If ctx is
// canceled the readings collected so far are averaged.
func Calibrate(ctx context.Context, read ReadFunc, opts *CalibrateOptions, logger *logrus.Logger) Calibration {
	if opts == nil {
		opts = DefaultCalibrateOptions()
	}
	if logger == nil {
		logger = noopLogger
	}

	n := opts.Samples
	if n < 1 {
		n = 1
	}

	var (
		sum      int
		taken    int
		failures int
	)

	for i := 0; i < n; i++ {
		if i > 0 && !sleepCtx(ctx, opts.Delay) {
			break
		}
		v, err := read()
		if err != nil {
			failures++
			logger.WithError(err).WithField("sample", i).Debug("Calibration read failed, using fallback")
			v = opts.Fallback
		}
		sum += int(v)
		taken++
	}

	center := opts.Fallback
	if taken > 0 {
		center = Sample(sum / taken)
	}

	cal := Calibration{
		Center: clamp(center, opts.Min, opts.Max),
		Min:    opts.Min,
		Max:    opts.Max,
	}

	entry := logger.WithFields(logrus.Fields{
		"center":   cal.Center,
		"samples":  taken,
		"failures": failures,
	})
	if failures > 0 {
		entry.Warn("Axis calibrated with failed readings")
	} else {
		entry.Debug("Axis calibrated")
	}

	return cal
}

// sleepCtx waits for d unless ctx ends first; it reports whether the wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
