package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blepad/internal/report"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex-frame>",
	Short: "Decode a report frame",
	Long: `Parses a frame as sent in the Report characteristic and prints its fields.
Spaces, colons and a 0x prefix in the hex string are ignored.

Examples:
  blepad decode 01027f00
  blepad decode "01 24 7f 81 00 00 ff 00" --layout dualstick8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

var decodeJSON bool

func init() {
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Output as JSON")
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	frame, err := parseHexFrame(args[0])
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	layout := cfg.ReportLayout()
	r, err := report.Decode(layout, frame)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if decodeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(out, "layout: %s\n", layout)
	fmt.Fprintf(out, "report: %s\n", r)
	return nil
}

func parseHexFrame(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	frame, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return frame, nil
}
