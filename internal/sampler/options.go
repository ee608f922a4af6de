package sampler

import (
	"github.com/srg/blepad/internal/axis"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/pkg/config"
)

// FromConfig maps a validated configuration onto sampler options.
func FromConfig(cfg *config.Config) Options {
	s := cfg.Sticks
	return Options{
		Tick:   cfg.Tick,
		Layout: cfg.ReportLayout(),
		Conditioner: axis.Conditioner{
			DeadZone: cfg.Conditioning.DeadZone,
			Softness: cfg.Conditioning.CurveSoftness,
		},
		Threshold: cfg.Conditioning.DirectionThreshold,
		Policy: report.Policy{
			HeartbeatTicks: cfg.Gate.HeartbeatTicks,
			Jitter:         cfg.Gate.Jitter,
		},
		Channels: Channels{
			LeftX: s.LeftX, LeftY: s.LeftY,
			RightX: s.RightX, RightY: s.RightY,
			LeftTrigger: s.LeftTrigger, RightTrigger: s.RightTrigger,
			InvertX: s.InvertX, InvertY: s.InvertY,
			InvertRX: s.InvertRX, InvertRY: s.InvertRY,
		},
		ButtonPins: cfg.Buttons.Pins(),
		Calibrate: axis.CalibrateOptions{
			Samples:  cfg.Calibration.Samples,
			Delay:    cfg.Calibration.Delay,
			Min:      axis.Sample(cfg.Calibration.MinMV),
			Max:      axis.Sample(cfg.Calibration.MaxMV),
			Fallback: axis.Sample(cfg.Calibration.FallbackMV),
		},
	}
}
