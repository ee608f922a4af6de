// Package sampler runs the periodic input pipeline: read, condition,
// discretize, encode, gate, transmit.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/axis"
	"github.com/srg/blepad/internal/hat"
	"github.com/srg/blepad/internal/input"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/pkg/connection"
)

// Sink takes an encoded frame for the host behind h and returns without waiting
// for delivery.
type Sink interface {
	Send(h connection.Handle, frame []byte)
}

// Unwired marks an analog role with no channel; it reads as neutral.
const Unwired = -1

// readFailureWarnEvery rate-limits the warning for failed reads; every failure
// is still logged at debug.
const readFailureWarnEvery = 100

// Channels assigns ADC channels to analog roles.
type Channels struct {
	LeftX, LeftY     int
	RightX, RightY   int
	LeftTrigger      int
	RightTrigger     int
	InvertX, InvertY bool
	InvertRX         bool
	InvertRY         bool
}

// Options configures a Sampler.
type Options struct {
	Tick        time.Duration
	Layout      report.Layout
	Conditioner axis.Conditioner
	// Threshold is the conditioned deflection past which the stick raises a
	// hat direction.
	Threshold  float64
	Policy     report.Policy
	Channels   Channels
	ButtonPins []int
	Calibrate  axis.CalibrateOptions

	// OnTick, if set, observes every tick after it completes.
	OnTick func(TickResult)
}

// DefaultOptions is the reference pad: one stick on channels 0 and 3, four
// buttons, compact layout, 50 ms tick.
func DefaultOptions() Options {
	return Options{
		Tick:        50 * time.Millisecond,
		Layout:      report.Compact4,
		Conditioner: axis.Conditioner{DeadZone: 0.12, Softness: 0.7},
		Threshold:   0.3,
		Policy:      report.Policy{HeartbeatTicks: 10, Jitter: report.DefaultJitter},
		Channels: Channels{
			LeftX: 0, LeftY: 3,
			RightX: Unwired, RightY: Unwired,
			LeftTrigger: Unwired, RightTrigger: Unwired,
		},
		ButtonPins: []int{32, 33, 26, 25},
		Calibrate:  *axis.DefaultCalibrateOptions(),
	}
}

// TickResult describes one pass through the pipeline.
type TickResult struct {
	Seq      uint64
	Report   report.Report
	Frame    []byte
	Decision report.Decision
	// Sent is true when the frame went to the sink.
	Sent bool
	// Skipped is true when the gate asked for a send but no host was connected.
	Skipped    bool
	ReadErrors int
}

// Sampler owns the gate and calibration of one controller. Tick and Run must
// not be called concurrently.
type Sampler struct {
	opts    Options
	axes    input.AxisReader
	buttons input.ButtonReader
	tracker *connection.Tracker
	sink    Sink
	logger  *logrus.Logger

	cal        map[int]axis.Calibration
	calibrated bool
	gate       *report.Gate
	generation uint64
	seq        uint64
	failures   uint64
}

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// New wires a sampler. axes and buttons are often the same input.Reader.
func New(opts Options, axes input.AxisReader, buttons input.ButtonReader, tracker *connection.Tracker, sink Sink, logger *logrus.Logger) (*Sampler, error) {
	switch {
	case axes == nil || buttons == nil:
		return nil, errors.New("sampler: input readers are required")
	case tracker == nil:
		return nil, errors.New("sampler: connection tracker is required")
	case sink == nil:
		return nil, errors.New("sampler: sink is required")
	case opts.Layout.Size() == 0:
		return nil, fmt.Errorf("sampler: %w: %s", report.ErrUnknownLayout, opts.Layout)
	case opts.Tick <= 0:
		return nil, fmt.Errorf("sampler: tick must be positive, got %s", opts.Tick)
	case len(opts.ButtonPins) > opts.Layout.MaxButtons():
		return nil, fmt.Errorf("sampler: %d buttons exceed the %d of layout %s",
			len(opts.ButtonPins), opts.Layout.MaxButtons(), opts.Layout)
	}
	if logger == nil {
		logger = noopLogger
	}

	return &Sampler{
		opts:    opts,
		axes:    axes,
		buttons: buttons,
		tracker: tracker,
		sink:    sink,
		logger:  logger,
		cal:     make(map[int]axis.Calibration),
		gate:    report.NewGate(opts.Policy),
	}, nil
}

// wired lists the distinct channels in use, in role order.
func (s *Sampler) wired() []int {
	c := s.opts.Channels
	roles := []int{c.LeftX, c.LeftY}
	if s.opts.Layout.HasRightStick() {
		roles = append(roles, c.RightX, c.RightY, c.LeftTrigger, c.RightTrigger)
	}

	var chans []int
	seen := make(map[int]bool)
	for _, ch := range roles {
		if ch < 0 || seen[ch] {
			continue
		}
		seen[ch] = true
		chans = append(chans, ch)
	}
	return chans
}

// Calibrate measures the rest position of every wired channel. The controls
// must be untouched while it runs.
func (s *Sampler) Calibrate(ctx context.Context) map[int]axis.Calibration {
	for _, ch := range s.wired() {
		read := func() (axis.Sample, error) { return s.axes.ReadAxis(ch) }
		s.cal[ch] = axis.Calibrate(ctx, read, &s.opts.Calibrate, s.logger)

		s.logger.WithFields(logrus.Fields{
			"channel":     ch,
			"calibration": s.cal[ch].String(),
		}).Info("Channel calibrated")
	}
	s.calibrated = true
	return s.Calibrations()
}

// SetCalibration installs a known calibration, skipping measurement.
func (s *Sampler) SetCalibration(ch int, c axis.Calibration) {
	s.cal[ch] = c
	s.calibrated = true
}

// Calibrations returns a copy of the current calibrations by channel.
func (s *Sampler) Calibrations() map[int]axis.Calibration {
	out := make(map[int]axis.Calibration, len(s.cal))
	for ch, c := range s.cal {
		out[ch] = c
	}
	return out
}

func (s *Sampler) calibration(ch int) axis.Calibration {
	if c, ok := s.cal[ch]; ok {
		return c
	}
	o := s.opts.Calibrate
	return axis.Calibration{Center: o.Fallback, Min: o.Min, Max: o.Max}
}

// readAxis returns the conditioned value of ch; an unwired channel is 0 and a
// failed read is the calibrated center (also 0).
func (s *Sampler) readAxis(ch int, invert bool, errs *int) float64 {
	if ch < 0 {
		return 0
	}
	cal := s.calibration(ch)
	raw, err := s.axes.ReadAxis(ch)
	if err != nil {
		*errs++
		s.readFailed(err, logrus.Fields{"channel": ch})
		raw = cal.Center
	}
	cond := s.opts.Conditioner
	cond.Invert = invert
	return cond.Apply(raw, cal)
}

func (s *Sampler) readFailed(err error, fields logrus.Fields) {
	s.failures++
	entry := s.logger.WithError(err).WithFields(fields).WithField("failures", s.failures)
	if s.failures == 1 || s.failures%readFailureWarnEvery == 0 {
		entry.Warn("Input read failed, using neutral value")
		return
	}
	entry.Debug("Input read failed, using neutral value")
}

// Sample reads and conditions the inputs into a report without gating or
// sending it.
func (s *Sampler) Sample() (report.Report, int) {
	var errs int
	c := s.opts.Channels

	x := s.readAxis(c.LeftX, c.InvertX, &errs)
	y := s.readAxis(c.LeftY, c.InvertY, &errs)

	r := report.Report{
		Direction: hat.FromAxes(x, y, s.opts.Threshold),
		X:         axis.ToInt8(x),
		Y:         axis.ToInt8(y),
	}

	if s.opts.Layout.HasRightStick() {
		r.RX = axis.ToInt8(s.readAxis(c.RightX, c.InvertRX, &errs))
		r.RY = axis.ToInt8(s.readAxis(c.RightY, c.InvertRY, &errs))
		r.LT = axis.ToTrigger(s.readAxis(c.LeftTrigger, false, &errs))
		r.RT = axis.ToTrigger(s.readAxis(c.RightTrigger, false, &errs))
	}

	buttons, err := input.ReadButtons(s.buttons, s.opts.ButtonPins)
	if err != nil {
		errs++
		s.readFailed(err, logrus.Fields{"pins": s.opts.ButtonPins})
	}
	r.Buttons = buttons

	return r, errs
}

// Tick runs the pipeline once.
func (s *Sampler) Tick() TickResult {
	s.seq++
	r, errs := s.Sample()
	res := TickResult{
		Seq:        s.seq,
		Report:     r,
		Frame:      report.Encode(s.opts.Layout, r),
		ReadErrors: errs,
	}

	// snapshot immediately before deciding; the handle is used as read here
	st := s.tracker.Snapshot()
	if st.Connected && st.Generation != s.generation {
		s.generation = st.Generation
		s.gate.Invalidate()
	}

	res.Decision = s.gate.Decide(r)
	if res.Decision.Send {
		if st.Connected {
			s.sink.Send(st.Handle, res.Frame)
			s.gate.Commit(r)
			res.Sent = true

			s.logger.WithFields(logrus.Fields{
				"reason": res.Decision.Reason.String(),
				"report": r.String(),
			}).Trace("Report sent")
		} else {
			res.Skipped = true
		}
	}

	s.step()

	if s.opts.OnTick != nil {
		s.opts.OnTick(res)
	}
	return res
}

func (s *Sampler) step() {
	if st, ok := s.axes.(input.Stepper); ok {
		st.Step()
	}
	if any(s.buttons) == any(s.axes) {
		return
	}
	if st, ok := s.buttons.(input.Stepper); ok {
		st.Step()
	}
}

// Run calibrates (unless already done) and ticks until ctx is done. It returns
// ctx.Err().
func (s *Sampler) Run(ctx context.Context) error {
	if !s.calibrated {
		s.Calibrate(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"tick":   s.opts.Tick,
		"layout": s.opts.Layout.String(),
	}).Info("Sampling started")

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithField("ticks", s.seq).Info("Sampling stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}
