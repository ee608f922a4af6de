package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blepad/internal/devicefactory"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/internal/testutils"
	"github.com/srg/blepad/internal/transport/gatt"
	"github.com/srg/blepad/pkg/config"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// pushRight rests for two ticks, pushes full right with A held for one, then
// lets go.
const pushRight = `
rest: 1650
frames:
  - ticks: 2
  - ticks: 1
    axes: {0: 3300}
    buttons: [32]
  - ticks: 1
`

type CommandsSuite struct {
	CommandTestSuite
}

func TestCommandsSuite(t *testing.T) {
	suite.Run(t, new(CommandsSuite))
}

func (s *CommandsSuite) TestEncodeText() {
	out, err := s.ExecuteCommand("encode", "--x", "3300", "--buttons", "a", "--log-level", "error")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(out, `
layout: compact4
frame:  01 02 7f 00
report: buttons=0x0001 dir=E x=127 y=0
`)
}

func (s *CommandsSuite) TestEncodeIdle() {
	out, err := s.ExecuteCommand("encode")
	s.Require().NoError(err)
	s.Contains(out, "frame:  00 0f 00 00\n")
}

func (s *CommandsSuite) TestEncodeUpIsNorth() {
	out, err := s.ExecuteCommand("encode", "--y", "0")
	s.Require().NoError(err)
	s.Contains(out, "frame:  00 00 00 81\n")
}

func (s *CommandsSuite) TestEncodeDualStickJSON() {
	out, err := s.ExecuteCommand("encode", "--layout", "dualstick8", "--x", "0", "--buttons", "a", "--json")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `{
		"layout": "dualstick8",
		"frame": "0110810000000000",
		"report": {"buttons": 1, "direction": "W", "x": -127, "y": 0, "rx": 0, "ry": 0, "lt": 0, "rt": 0}
	}`)
}

func (s *CommandsSuite) TestEncodeErrors() {
	_, err := s.ExecuteCommand("encode", "--buttons", "a,turbo")
	s.ErrorIs(err, ErrUnknownButton)

	_, err = s.ExecuteCommand("encode", "--rx", "3300")
	s.ErrorContains(err, "--rx: stick role is not wired")

	_, err = s.ExecuteCommand("encode", "--layout", "xinput")
	s.ErrorIs(err, config.ErrInvalid)
}

func (s *CommandsSuite) TestDecodeText() {
	out, err := s.ExecuteCommand("decode", "01027f00")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(out, `
layout: compact4
report: buttons=0x0001 dir=E x=127 y=0
`)
}

func (s *CommandsSuite) TestDecodeJSON() {
	out, err := s.ExecuteCommand("decode", "01 10 81 00 00 00 00 00", "--layout", "dualstick8", "--json")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `{"buttons": 1, "direction": "W", "x": -127}`)
}

func (s *CommandsSuite) TestDecodeErrors() {
	_, err := s.ExecuteCommand("decode", "0102")
	s.ErrorIs(err, report.ErrMalformedFrame)

	_, err = s.ExecuteCommand("decode", "zz")
	s.ErrorIs(err, ErrInvalidHex)

	_, err = s.ExecuteCommand("decode")
	s.Error(err)
}

// monitorLines splits monitor output into per-tick fields and the summary.
func monitorLines(out string) ([][]string, string) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var ticks [][]string
	for _, l := range lines[:len(lines)-1] {
		ticks = append(ticks, strings.Fields(l))
	}
	return ticks, lines[len(lines)-1]
}

func (s *CommandsSuite) TestMonitorScript() {
	script := s.WriteFile("push.yaml", pushRight)

	out, err := s.ExecuteCommand("monitor", "--script", script, "--tick", "1ms", "--log-level", "error")
	s.Require().NoError(err)

	ticks, summary := monitorLines(out)
	s.Equal("4 ticks, 3 reports sent", summary)
	s.Require().Len(ticks, 3)

	s.Equal([]string{"1", "initial", "00", "0f", "00", "00"}, ticks[0][:6])
	s.Equal([]string{"3", "changed", "01", "02", "7f", "00"}, ticks[1][:6])
	s.Equal([]string{"4", "changed", "00", "0f", "00", "00"}, ticks[2][:6])
}

func (s *CommandsSuite) TestMonitorAll() {
	script := s.WriteFile("push.yaml", pushRight)

	out, err := s.ExecuteCommand("monitor", "--script", script, "--tick", "1ms", "--all", "--log-level", "error")
	s.Require().NoError(err)

	ticks, summary := monitorLines(out)
	s.Equal("4 ticks, 3 reports sent", summary)
	s.Require().Len(ticks, 4)
	s.Equal([]string{"2", "-", "00", "0f", "00", "00"}, ticks[1][:6])
}

func (s *CommandsSuite) TestMonitorTickLimitWithConfigFile() {
	path, err := testutils.ProjectFile("examples/blepad.yaml")
	s.Require().NoError(err)

	out, err := s.ExecuteCommand("monitor", "--config", path, "--ticks", "3", "--tick", "1ms", "--log-level", "error")
	s.Require().NoError(err)
	s.Contains(out, "3 ticks, ")
	s.Contains(out, "initial")
}

func (s *CommandsSuite) TestMonitorPTY() {
	script := s.WriteFile("push.yaml", pushRight)

	out, err := s.ExecuteCommand("monitor", "--script", script, "--tick", "1ms", "--pty", "--log-level", "error")
	if err != nil && strings.Contains(err.Error(), "failed to create PTY") {
		s.T().Skipf("PTY not available: %v", err)
	}
	s.Require().NoError(err)

	first, rest, _ := strings.Cut(out, "\n")
	s.Regexp(`^streaming frames on /dev/\S+$`, first)

	ticks, summary := monitorLines(rest)
	s.Equal("4 ticks, 3 reports sent", summary)
	s.Len(ticks, 3)
}

func (s *CommandsSuite) TestMonitorRejectsNegativeTicks() {
	_, err := s.ExecuteCommand("monitor", "--ticks", "-1")
	s.ErrorContains(err, "--ticks must not be negative")
}

func (s *CommandsSuite) TestCalibrateJSON() {
	script := s.WriteFile("rest.yaml", `
rest: 1650
frames:
  - axes: {0: 1700, 3: 1600}
`)

	out, err := s.ExecuteCommand("calibrate", "--script", script, "--json", "--log-level", "error")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `[
		{"channel": 0, "roles": ["left_x"], "center": 1700, "min": 0, "max": 3300},
		{"channel": 3, "roles": ["left_y"], "center": 1600, "min": 0, "max": 3300}
	]`)
}

func (s *CommandsSuite) TestCalibrateTable() {
	out, err := s.ExecuteCommand("calibrate", "--input", "mock", "--log-level", "error")
	s.Require().NoError(err)
	s.Contains(out, "CHANNEL  ROLE    CENTER")
	s.Contains(out, "left_y")
}

func (s *CommandsSuite) TestInvalidConfigFile() {
	path := s.WriteFile("bad.yaml", "conditioning:\n  dead_zone: 1.5\n")

	_, err := s.ExecuteCommand("encode", "--config", path)
	s.Require().Error(err)
	s.Equal("invalid configuration: conditioning.dead_zone: must be in [0, 1), got 1.5", FormatUserError(err))
}

func (s *CommandsSuite) TestRunServesReports() {
	var svc *ble.Service
	advertising := make(chan struct{})

	s.Device.On("AddService", mock.Anything).
		Run(func(args mock.Arguments) { svc = args.Get(0).(*ble.Service) }).
		Return(nil)
	s.Device.On("AdvertiseNameAndServices", mock.Anything, "pad-test", gatt.HIDServiceUUID).
		Run(func(args mock.Arguments) {
			close(advertising)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.Canceled)
	s.Device.On("Stop").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.ExecuteCommandContext(ctx, "run", "--name", "pad-test", "--log-level", "error")
		errCh <- err
	}()

	select {
	case <-advertising:
	case <-time.After(2 * time.Second):
		s.FailNow("peripheral never advertised")
	}

	var rc *ble.Characteristic
	for _, c := range svc.Characteristics {
		if c.UUID.Equal(gatt.ReportUUID) {
			rc = c
		}
	}
	s.Require().NotNil(rc)

	host := testutils.NewFakeNotifier()
	go rc.NotifyHandler.ServeNotify(testutils.NewFakeRequest("11:22:33:44:55:66", nil), host)

	s.Require().Eventually(func() bool { return len(host.Writes()) > 0 }, 2*time.Second, 5*time.Millisecond)
	s.Equal([]byte{0x00, 0x0F, 0x00, 0x00}, host.Writes()[0])

	cancel()
	host.Unsubscribe()
	select {
	case err := <-errCh:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("run did not stop")
	}
	s.Device.AssertExpectations(s.T())
}

func (s *CommandsSuite) TestRunServiceFailure() {
	s.Device.On("AddService", mock.Anything).Return(errors.New("hci down"))
	s.Device.On("Stop").Return(nil)

	_, err := s.ExecuteCommand("run", "--log-level", "error")
	s.ErrorContains(err, "failed to add HID service: hci down")
}

func (s *CommandsSuite) TestRunWithoutAdapter() {
	devicefactory.DeviceFactory = func() (ble.Device, error) {
		return nil, devicefactory.ErrUnsupportedPlatform
	}

	_, err := s.ExecuteCommand("run", "--log-level", "error")
	s.Require().ErrorIs(err, devicefactory.ErrUnsupportedPlatform)
	s.Contains(FormatUserError(err), "try 'blepad monitor'")
}
