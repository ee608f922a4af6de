package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blepad/internal/axis"
	"github.com/srg/blepad/internal/input"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/internal/sampler"
	"github.com/srg/blepad/pkg/config"
	"github.com/srg/blepad/pkg/connection"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Run one pipeline pass on given input values and print the frame",
	Long: `Feeds fixed millivolt readings and button presses through calibration,
conditioning, discretization and encoding, exactly as one sampling tick would,
and prints the resulting frame. Axes not given sit at --center.

Examples:
  # Full right with A held
  blepad encode --x 3300 --buttons a

  # Dual stick layout as JSON
  blepad encode --layout dualstick8 --x 0 --rx 3300 --rt 3300 --json`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

var (
	encodeButtons string
	encodeCenter  int
	encodeJSON    bool
)

// axis flags and the stick role each one drives
var encodeAxes = []struct {
	flag, usage string
	channel     func(config.Sticks) int
}{
	{"x", "Left stick X reading (mV)", func(s config.Sticks) int { return s.LeftX }},
	{"y", "Left stick Y reading (mV)", func(s config.Sticks) int { return s.LeftY }},
	{"rx", "Right stick X reading (mV)", func(s config.Sticks) int { return s.RightX }},
	{"ry", "Right stick Y reading (mV)", func(s config.Sticks) int { return s.RightY }},
	{"lt", "Left trigger reading (mV)", func(s config.Sticks) int { return s.LeftTrigger }},
	{"rt", "Right trigger reading (mV)", func(s config.Sticks) int { return s.RightTrigger }},
}

func init() {
	for _, a := range encodeAxes {
		encodeCmd.Flags().Int(a.flag, 0, a.usage)
	}
	encodeCmd.Flags().StringVar(&encodeButtons, "buttons", "", "Held buttons by name, comma-separated (e.g. a,start)")
	encodeCmd.Flags().IntVar(&encodeCenter, "center", 0, "Calibrated center (mV); calibration.fallback_mv if 0")
	encodeCmd.Flags().BoolVar(&encodeJSON, "json", false, "Output as JSON")
}

type encodeResult struct {
	Layout string        `json:"layout"`
	Frame  string        `json:"frame"`
	Report report.Report `json:"report"`
}

func runEncode(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	center := cfg.Calibration.FallbackMV
	if encodeCenter != 0 {
		center = encodeCenter
	}

	static := input.NewStatic(axis.Sample(center))
	for _, a := range encodeAxes {
		if !cmd.Flags().Changed(a.flag) {
			continue
		}
		ch := a.channel(cfg.Sticks)
		if ch < 0 {
			return fmt.Errorf("--%s: stick role is not wired to a channel", a.flag)
		}
		v, _ := cmd.Flags().GetInt(a.flag)
		static.SetAxis(ch, axis.Sample(v))
	}

	if err := pressButtons(static, cfg.Buttons, encodeButtons); err != nil {
		return err
	}

	cmd.SilenceUsage = true

	tracker := connection.NewTracker(nil)
	tracker.SetConnected(connection.StringHandle("encode"))

	smp, err := sampler.New(sampler.FromConfig(cfg), static, static, tracker, discardSink{}, nil)
	if err != nil {
		return err
	}
	for ch := range channelRoles(cfg) {
		smp.SetCalibration(ch, axis.Calibration{
			Center: axis.Sample(center),
			Min:    axis.Sample(cfg.Calibration.MinMV),
			Max:    axis.Sample(cfg.Calibration.MaxMV),
		})
	}

	res := smp.Tick()
	return printEncoded(cmd.OutOrStdout(), encodeResult{
		Layout: cfg.ReportLayout().String(),
		Frame:  hex.EncodeToString(res.Frame),
		Report: res.Report,
	}, res.Frame)
}

func pressButtons(s *input.Static, buttons config.ButtonMap, names string) error {
	if strings.TrimSpace(names) == "" {
		return nil
	}
	pins := buttons.Pins()
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		i, ok := buttons.Index(name)
		if !ok {
			return fmt.Errorf("%w %q (configured: %s)", ErrUnknownButton, name, strings.Join(buttons.Names(), ", "))
		}
		s.SetButton(pins[i], true)
	}
	return nil
}

func printEncoded(out io.Writer, r encodeResult, frame []byte) error {
	if encodeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(out, "layout: %s\n", r.Layout)
	fmt.Fprintf(out, "frame:  % x\n", frame)
	fmt.Fprintf(out, "report: %s\n", r.Report)
	return nil
}
