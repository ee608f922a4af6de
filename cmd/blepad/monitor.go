package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blepad/internal/input"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/internal/sampler"
	"github.com/srg/blepad/internal/transport"
	"github.com/srg/blepad/internal/transport/serial"
	"github.com/srg/blepad/pkg/connection"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print the report stream without a radio",
	Long: `Runs the sampling pipeline against a console host that is always
connected and prints every report the gate lets through, colored by reason:
initial (cyan), changed (green), heartbeat (yellow).

A non-looping input script ends the monitor when it has played every frame.

Examples:
  # Watch the noisy mock sensor
  blepad monitor

  # Replay a script quickly and show gated ticks too
  blepad monitor --script demo.yaml --tick 5ms --all

  # Stop after 100 ticks
  blepad monitor --ticks 100

  # Also stream sent frames as hex lines on a pseudo-terminal
  blepad monitor --pty`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

var (
	monitorTicks int
	monitorAll   bool
	monitorTick  time.Duration
	monitorPTY   bool
)

const consoleHost = connection.StringHandle("console")

func init() {
	monitorCmd.Flags().IntVar(&monitorTicks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	monitorCmd.Flags().BoolVar(&monitorAll, "all", false, "Also print ticks the gate held back")
	monitorCmd.Flags().DurationVar(&monitorTick, "tick", 0, "Sampling period override")
	monitorCmd.Flags().BoolVar(&monitorPTY, "pty", false, "Stream sent frames as hex lines on a pseudo-terminal")
}

// discardSink stands in for the radio; frames are printed from the tick hook.
type discardSink struct{}

func (discardSink) Send(connection.Handle, []byte) {}

type tickPrinter struct {
	out    io.Writer
	colors map[report.Reason]*color.Color
	faint  *color.Color
	all    bool

	ticks, sent int
}

func newTickPrinter(out io.Writer, all bool) *tickPrinter {
	cyan, green, yellow := color.New(color.FgCyan), color.New(color.FgGreen), color.New(color.FgYellow)
	faint := color.New(color.Faint)

	enable := isTerminal(out)
	for _, c := range []*color.Color{cyan, green, yellow, faint} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &tickPrinter{
		out: out,
		all: all,
		colors: map[report.Reason]*color.Color{
			report.ReasonInitial:   cyan,
			report.ReasonChanged:   green,
			report.ReasonHeartbeat: yellow,
		},
		faint: faint,
	}
}

func (p *tickPrinter) print(res sampler.TickResult) {
	p.ticks++
	if res.Sent {
		p.sent++
	}
	if !res.Sent && !p.all {
		return
	}

	reason, c := "-", p.faint
	if res.Sent {
		reason, c = res.Decision.Reason.String(), p.colors[res.Decision.Reason]
	}
	line := fmt.Sprintf("%5d  %-9s  % x  %s", res.Seq, reason, res.Frame, res.Report)
	if res.ReadErrors > 0 {
		line += fmt.Sprintf("  (%d read errors)", res.ReadErrors)
	}
	c.Fprintln(p.out, line)
}

func (p *tickPrinter) summary() {
	fmt.Fprintf(p.out, "%d ticks, %d reports sent\n", p.ticks, p.sent)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if monitorTick > 0 {
		cfg.Tick = monitorTick
	}
	if monitorTicks < 0 {
		return fmt.Errorf("--ticks must not be negative, got %d", monitorTicks)
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

	tracker := connection.NewTracker(logger)
	tracker.SetConnected(consoleHost)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	finite, _ := reader.(interface{ Finished() bool })
	printer := newTickPrinter(cmd.OutOrStdout(), monitorAll)

	opts := sampler.FromConfig(cfg)
	stopped := false
	opts.OnTick = func(res sampler.TickResult) {
		// a tick may still fire while Run notices the cancellation
		if stopped {
			return
		}
		printer.print(res)
		if (monitorTicks > 0 && res.Seq >= uint64(monitorTicks)) || (finite != nil && finite.Finished()) {
			stopped = true
			cancel()
		}
	}

	var sink sampler.Sink = discardSink{}
	var queue *transport.Queue
	if monitorPTY {
		tty, err := serial.Open(serial.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if err := tty.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close PTY")
			}
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "streaming frames on %s\n", tty.Name())

		queue = transport.NewQueue(tty, cfg.QueueSize, logger)
		queue.Start(ctx)
		sink = queue
	}

	smp, err := sampler.New(opts, reader, reader, tracker, sink, logger)
	if err != nil {
		return err
	}

	err = smp.Run(ctx)
	printer.summary()
	if queue != nil {
		cancel()
		<-queue.Done()
		logger.WithField("queue", queue.Metrics()).Debug("PTY stream stopped")
	}
	if !isShutdown(err) {
		return err
	}
	return nil
}
