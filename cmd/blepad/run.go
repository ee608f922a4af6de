package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blepad/internal/devicefactory"
	"github.com/srg/blepad/internal/groutine"
	"github.com/srg/blepad/internal/input"
	"github.com/srg/blepad/internal/sampler"
	"github.com/srg/blepad/internal/transport"
	"github.com/srg/blepad/internal/transport/gatt"
	"github.com/srg/blepad/pkg/connection"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Advertise as a BLE gamepad and stream input reports",
	Long: `Opens the BLE adapter in peripheral role, publishes the HID service and
advertises under the configured device name. Once a host enables report
notifications, input is sampled every tick and reports are sent on change.

Examples:
  # Mock input, default layout
  blepad run

  # Real hardware with a config file
  blepad run --config /etc/blepad.yaml --input hardware

  # Replay a recorded input script under another name
  blepad run --script demo.yaml --name "blepad demo"`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runName string

func init() {
	runCmd.Flags().StringVar(&runName, "name", "", "Advertised device name (overrides device_name)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if runName != "" {
		cfg.DeviceName = runName
	}

	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	reader, err := input.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer closeReader(reader, logger)

	dev, err := devicefactory.Open(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Stop(); err != nil {
			logger.WithError(err).Debug("BLE adapter stop failed")
		}
	}()

	tracker := connection.NewTracker(logger)
	peripheral := gatt.NewPeripheral(dev, tracker, gatt.Options{
		Name:     cfg.DeviceName,
		Layout:   cfg.ReportLayout(),
		ReportID: uint8(cfg.ReportID),
	}, logger)
	queue := transport.NewQueue(peripheral, cfg.QueueSize, logger)

	smp, err := sampler.New(sampler.FromConfig(cfg), reader, reader, tracker, queue, logger)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(sigCtx)
	defer cancel(nil)

	out := cmd.OutOrStdout()
	if isTerminal(out) {
		progress := NewProgressPrinter(out, fmt.Sprintf("Advertising as %q", cfg.DeviceName), "Waiting for host", "Connected")
		setPhase := progress.Callback()
		tracker.Subscribe(func(st connection.State) {
			if st.Connected {
				setPhase("Connected")
			}
		})
		progress.Start()
		defer progress.Stop()
	}

	queue.Start(ctx)
	served := groutine.Go(ctx, "gatt-serve", func(ctx context.Context) {
		if err := peripheral.Serve(ctx); !isShutdown(err) {
			cancel(err)
		}
	})

	err = smp.Run(ctx)
	cancel(nil)
	<-served
	<-queue.Done()

	logger.WithFields(logrus.Fields{
		"queue": queue.Metrics(),
	}).Info("Gamepad stopped")

	if cause := context.Cause(ctx); !isShutdown(cause) {
		return cause
	}
	if !isShutdown(err) {
		return err
	}
	return nil
}

// isShutdown reports whether err is nil or only says the context ended.
func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func closeReader(r input.Reader, logger *logrus.Logger) {
	c, ok := r.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close input")
	}
}
