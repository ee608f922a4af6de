package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blepad/internal/devicefactory"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation error",
			err:  fmt.Errorf("load: %w", &config.ValidationError{Field: "layout", Msg: "bad"}),
			want: "invalid configuration: layout: bad",
		},
		{
			name: "unsupported platform",
			err:  fmt.Errorf("failed to open BLE adapter: %w", devicefactory.ErrUnsupportedPlatform),
			want: "failed to open BLE adapter: BLE peripheral not supported on this platform (try 'blepad monitor' to run without a radio)",
		},
		{
			name: "malformed frame",
			err:  fmt.Errorf("%w: reserved bits set", report.ErrMalformedFrame),
			want: "malformed report frame: reserved bits set (check --layout matches the frame)",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		verbose  bool
		fallback string
		want     logrus.Level
		wantErr  bool
	}{
		{name: "silent by default", want: logrus.PanicLevel},
		{name: "fallback", fallback: "warn", want: logrus.WarnLevel},
		{name: "verbose beats fallback", verbose: true, fallback: "error", want: logrus.DebugLevel},
		{name: "log level beats verbose", logLevel: "error", verbose: true, want: logrus.ErrorLevel},
		{name: "invalid level", logLevel: "loud", wantErr: true},
		{name: "invalid fallback", fallback: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().String("log-level", tt.logLevel, "")
			cmd.Flags().Bool("verbose", tt.verbose, "")

			logger, err := configureLogger(cmd, tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestParseHexFrame(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"01027f00", []byte{0x01, 0x02, 0x7F, 0x00}},
		{"01 02 7F 00", []byte{0x01, 0x02, 0x7F, 0x00}},
		{"0x00:0f:00:00", []byte{0x00, 0x0F, 0x00, 0x00}},
		{"  00-0F  ", []byte{0x00, 0x0F}},
	}
	for _, tt := range tests {
		got, err := parseHexFrame(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseHexFrame("0g")
	assert.ErrorIs(t, err, ErrInvalidHex)
	_, err = parseHexFrame("012")
	assert.ErrorIs(t, err, ErrInvalidHex)
}

func TestChannelRoles(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, map[int][]string{0: {"left_x"}, 3: {"left_y"}}, channelRoles(cfg))

	cfg.Layout = "dualstick8"
	cfg.Sticks.RightX, cfg.Sticks.RightY = 1, 2
	cfg.Sticks.RightTrigger = 1
	assert.Equal(t, map[int][]string{
		0: {"left_x"},
		1: {"right_x", "right_trigger"},
		2: {"right_y"},
		3: {"left_y"},
	}, channelRoles(cfg))
}
