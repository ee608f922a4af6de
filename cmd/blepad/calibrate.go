package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/srg/blepad/internal/axis"
	"github.com/srg/blepad/internal/input"
	"github.com/srg/blepad/internal/sampler"
	"github.com/srg/blepad/pkg/config"
	"github.com/srg/blepad/pkg/connection"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Measure the rest position of every wired stick channel",
	Long: `Samples each wired analog channel the configured number of times and
prints the resulting calibration. Leave the sticks untouched while it runs.

Examples:
  blepad calibrate --input hardware
  blepad calibrate --layout dualstick8 --json`,
	Args: cobra.NoArgs,
	RunE: runCalibrate,
}

var calibrateJSON bool

func init() {
	calibrateCmd.Flags().BoolVar(&calibrateJSON, "json", false, "Output as JSON")
}

type channelCalibration struct {
	Channel int      `json:"channel"`
	Roles   []string `json:"roles"`
	Center  int      `json:"center"`
	Min     int      `json:"min"`
	Max     int      `json:"max"`
}

func runCalibrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	reader, err := input.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer closeReader(reader, logger)

	smp, err := sampler.New(sampler.FromConfig(cfg), reader, reader, connection.NewTracker(logger), discardSink{}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	stopProgress := func() {}
	if isTerminal(out) {
		progress := NewProgressPrinter(out, "Calibrating, hands off the sticks", "Sampling")
		progress.Start()
		stopProgress = progress.Stop
		defer progress.Stop()
	}

	cals := smp.Calibrate(ctx)
	stopProgress()
	if err := ctx.Err(); err != nil {
		return err
	}
	return printCalibrations(out, cfg, cals)
}

func printCalibrations(out io.Writer, cfg *config.Config, cals map[int]axis.Calibration) error {
	roles := channelRoles(cfg)

	rows := make([]channelCalibration, 0, len(cals))
	for ch, c := range cals {
		rows = append(rows, channelCalibration{
			Channel: ch,
			Roles:   roles[ch],
			Center:  int(c.Center),
			Min:     int(c.Min),
			Max:     int(c.Max),
		})
	}
	slices.SortFunc(rows, func(a, b channelCalibration) int { return a.Channel - b.Channel })

	if calibrateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tROLE\tCENTER\tMIN\tMAX")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", r.Channel, strings.Join(r.Roles, ","), r.Center, r.Min, r.Max)
	}
	return tw.Flush()
}

// channelRoles names the stick roles each wired channel serves.
func channelRoles(cfg *config.Config) map[int][]string {
	s := cfg.Sticks
	roles := []struct {
		name string
		ch   int
	}{
		{"left_x", s.LeftX},
		{"left_y", s.LeftY},
	}
	if cfg.ReportLayout().HasRightStick() {
		roles = append(roles, []struct {
			name string
			ch   int
		}{
			{"right_x", s.RightX},
			{"right_y", s.RightY},
			{"left_trigger", s.LeftTrigger},
			{"right_trigger", s.RightTrigger},
		}...)
	}

	out := make(map[int][]string)
	for _, r := range roles {
		if r.ch >= 0 {
			out[r.ch] = append(out[r.ch], r.name)
		}
	}
	return out
}
