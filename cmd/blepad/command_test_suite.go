package main

import (
	"bytes"
	"context"

	"github.com/go-ble/ble"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/blepad/internal/devicefactory"
	"github.com/srg/blepad/internal/testutils"
	"github.com/srg/blepad/internal/testutils/mocks"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs blepad commands in-process against a mock BLE adapter.
type CommandTestSuite struct {
	suite.Suite
	Helper *testutils.TestHelper
	Device *mocks.MockDevice

	origFactory func() (ble.Device, error)
}

func (s *CommandTestSuite) SetupTest() {
	s.Helper = testutils.NewTestHelper(s.T())
	s.Device = &mocks.MockDevice{}
	s.origFactory = devicefactory.DeviceFactory
	devicefactory.DeviceFactory = func() (ble.Device, error) { return s.Device, nil }
}

func (s *CommandTestSuite) TearDownTest() {
	devicefactory.DeviceFactory = s.origFactory
}

// ExecuteCommand runs the root command with args and returns stdout and stderr
// combined. Flags are reset first, since commands are package singletons.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	return s.ExecuteCommandContext(context.Background(), args...)
}

// ExecuteCommandContext is ExecuteCommand with a caller-controlled context.
func (s *CommandTestSuite) ExecuteCommandContext(ctx context.Context, args ...string) (string, error) {
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// WriteFile creates a file in the test temp dir and returns its path.
func (s *CommandTestSuite) WriteFile(name, content string) string {
	return s.Helper.WriteFile(name, content)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
