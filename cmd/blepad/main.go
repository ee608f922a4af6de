package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "blepad",
	Short: "BLE HID gamepad",
	Long: `Turns two analog sticks and a handful of buttons into a Bluetooth Low Energy
HID gamepad:

- Calibrates stick centers at startup
- Shapes stick input with a dead zone and a response curve
- Encodes compact fixed-size HID input reports
- Sends only on change, plus a heartbeat while a button is held

Inputs come from a noisy mock sensor, a YAML replay script or Linux IIO/GPIO
hardware. Use 'monitor' to watch the report stream without a radio.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("blepad {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "Path to a YAML config file (built-in defaults if empty)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Bool("verbose", false, "Enable debug logging")
	pf.String("layout", "", "Report layout override (compact4, buttons5, dualstick8)")
	pf.String("input", "", "Input driver override (mock, script, lua, hardware)")
	pf.String("script", "", "Input script path (.yaml replay or .lua); implies --input script or lua")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
