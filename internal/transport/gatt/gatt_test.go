package gatt

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/internal/testutils"
	"github.com/srg/blepad/internal/testutils/mocks"
	"github.com/srg/blepad/pkg/connection"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PeripheralSuite struct {
	suite.Suite
	helper  *testutils.TestHelper
	dev     *mocks.MockDevice
	tracker *connection.Tracker
	p       *Peripheral
}

func (s *PeripheralSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.dev = &mocks.MockDevice{}
	s.tracker = connection.NewTracker(s.helper.Logger)
	s.p = NewPeripheral(s.dev, s.tracker, Options{
		Name:     "blepad-test",
		Layout:   report.Compact4,
		ReportID: 2,
	}, s.helper.Logger)
}

func (s *PeripheralSuite) characteristic(svc *ble.Service, u ble.UUID) *ble.Characteristic {
	for _, c := range svc.Characteristics {
		if c.UUID.Equal(u) {
			return c
		}
	}
	s.FailNow("characteristic not found", u.String())
	return nil
}

// subscribe starts a notification session the way the GATT server does and
// waits until the tracker has seen it.
func (s *PeripheralSuite) subscribe(addr string) (*testutils.FakeNotifier, <-chan struct{}) {
	rc := s.characteristic(s.p.Service(), ReportUUID)
	n := testutils.NewFakeNotifier()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rc.NotifyHandler.ServeNotify(testutils.NewFakeRequest(addr, nil), n)
	}()
	s.Require().Eventually(func() bool {
		st := s.tracker.Snapshot()
		return st.Connected && st.Handle.ID() == addr
	}, time.Second, time.Millisecond)
	return n, done
}

func (s *PeripheralSuite) waitDone(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("notify handler did not return")
	}
}

func (s *PeripheralSuite) TestServiceLayout() {
	svc := s.p.Service()
	s.True(svc.UUID.Equal(HIDServiceUUID))

	rc := s.characteristic(svc, ReportUUID)
	s.NotNil(rc.ReadHandler)
	s.NotNil(rc.NotifyHandler)
	s.Require().Len(rc.Descriptors, 1)
	s.True(rc.Descriptors[0].UUID.Equal(ReportReferenceUUID))
	s.Equal([]byte{2, 0x01}, rc.Descriptors[0].Value)

	s.Equal(report.Descriptor(report.Compact4, 2), s.characteristic(svc, ReportMapUUID).Value)
	s.Equal([]byte("compact4"), s.characteristic(svc, LayoutCharacteristicID).Value)
	s.Equal([]byte{0x01}, s.characteristic(svc, ProtocolModeUUID).Value)
}

func (s *PeripheralSuite) TestReadServesLastFrame() {
	rc := s.characteristic(s.p.Service(), ReportUUID)

	rsp := &testutils.FakeResponse{}
	rc.ReadHandler.ServeRead(testutils.NewFakeRequest("aa:bb:cc:dd:ee:01", nil), rsp)
	s.Equal([]byte{0x00, 0x0F, 0x00, 0x00}, rsp.Value, "idle frame before anything was sent")

	_ = s.p.WriteFrame(nil, []byte{0x01, 0x02, 0x7F, 0x00})
	rsp = &testutils.FakeResponse{}
	rc.ReadHandler.ServeRead(testutils.NewFakeRequest("aa:bb:cc:dd:ee:01", nil), rsp)
	s.Equal([]byte{0x01, 0x02, 0x7F, 0x00}, rsp.Value)
}

func (s *PeripheralSuite) TestSubscribeConnectsAndNotifies() {
	n, done := s.subscribe("aa:bb:cc:dd:ee:01")
	s.Equal(1, s.p.Subscribers())

	h := s.tracker.Snapshot().Handle
	s.Require().NoError(s.p.WriteFrame(h, []byte{0x01, 0x02, 0x7F, 0x00}))
	s.Equal([][]byte{{0x01, 0x02, 0x7F, 0x00}}, n.Writes())

	n.Unsubscribe()
	s.waitDone(done)

	s.False(s.tracker.IsConnected())
	s.Equal(0, s.p.Subscribers())
	s.ErrorIs(s.p.WriteFrame(h, []byte{0}), ErrNotSubscribed)
}

func (s *PeripheralSuite) TestLateDisconnectOfReplacedHostIsIgnored() {
	first, firstDone := s.subscribe("aa:bb:cc:dd:ee:01")
	_, _ = s.subscribe("aa:bb:cc:dd:ee:02")

	first.Unsubscribe()
	s.waitDone(firstDone)

	st := s.tracker.Snapshot()
	s.True(st.Connected)
	s.Equal("aa:bb:cc:dd:ee:02", st.Handle.ID())
}

func (s *PeripheralSuite) TestEverySubscriberIsNotified() {
	a, _ := s.subscribe("aa:bb:cc:dd:ee:01")
	b, _ := s.subscribe("aa:bb:cc:dd:ee:02")
	s.Equal(2, s.p.Subscribers())

	s.Require().NoError(s.p.WriteFrame(s.tracker.Snapshot().Handle, []byte{0x01, 0x02, 0x7F, 0x00}))
	s.Equal([][]byte{{0x01, 0x02, 0x7F, 0x00}}, a.Writes())
	s.Equal([][]byte{{0x01, 0x02, 0x7F, 0x00}}, b.Writes())
}

func (s *PeripheralSuite) TestRemainingHostKeepsLinkWhenCurrentLeaves() {
	a, aDone := s.subscribe("aa:bb:cc:dd:ee:01")
	b, bDone := s.subscribe("aa:bb:cc:dd:ee:02")
	gen := s.tracker.Snapshot().Generation

	b.Unsubscribe()
	s.waitDone(bDone)

	st := s.tracker.Snapshot()
	s.True(st.Connected, "host A is still subscribed")
	s.Equal("aa:bb:cc:dd:ee:01", st.Handle.ID())
	s.Greater(st.Generation, gen, "the handover forces a fresh report")
	s.Equal(1, s.p.Subscribers())

	s.Require().NoError(s.p.WriteFrame(st.Handle, []byte{9}))
	s.Equal([][]byte{{9}}, a.Writes())
	s.Empty(b.Writes())

	a.Unsubscribe()
	s.waitDone(aDone)
	s.False(s.tracker.IsConnected())
	s.Equal(0, s.p.Subscribers())
}

func (s *PeripheralSuite) TestNilLoggerDiscards() {
	p := NewPeripheral(s.dev, s.tracker, Options{}, nil)
	s.Same(noopLogger, p.logger)
	s.Equal(io.Discard, p.logger.Out)
}

func (s *PeripheralSuite) TestResubscribeFromSameAddress() {
	old, oldDone := s.subscribe("aa:bb:cc:dd:ee:01")
	gen := s.tracker.Snapshot().Generation

	fresh, _ := s.subscribe("aa:bb:cc:dd:ee:01")
	s.Require().Eventually(func() bool { return s.tracker.Snapshot().Generation > gen }, time.Second, time.Millisecond)

	old.Unsubscribe()
	s.waitDone(oldDone)
	s.True(s.tracker.IsConnected(), "the stale session must not clear the fresh one")

	s.Require().NoError(s.p.WriteFrame(s.tracker.Snapshot().Handle, []byte{7}))
	s.Equal([][]byte{{7}}, fresh.Writes())
	s.Empty(old.Writes())
}

func (s *PeripheralSuite) TestWriteErrorIsReturned() {
	n, _ := s.subscribe("aa:bb:cc:dd:ee:01")
	n.FailWith(errors.New("att: insufficient resources"))

	err := s.p.WriteFrame(s.tracker.Snapshot().Handle, []byte{1})
	s.ErrorContains(err, "insufficient resources")
}

func (s *PeripheralSuite) TestServe() {
	advertising := make(chan struct{})
	s.dev.On("AddService", mock.AnythingOfType("*ble.Service")).Return(nil)
	s.dev.On("AdvertiseNameAndServices", mock.Anything, "blepad-test", HIDServiceUUID).
		Run(func(args mock.Arguments) {
			close(advertising)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.p.Serve(ctx) }()

	select {
	case <-advertising:
	case <-time.After(time.Second):
		s.FailNow("never advertised")
	}
	cancel()

	select {
	case err := <-errCh:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.FailNow("Serve did not return")
	}
	s.dev.AssertExpectations(s.T())
}

func (s *PeripheralSuite) TestServeAddServiceFails() {
	s.dev.On("AddService", mock.Anything).Return(errors.New("hci: busy"))

	err := s.p.Serve(context.Background())
	s.ErrorContains(err, "failed to add HID service")
}

func TestPeripheralSuite(t *testing.T) {
	suite.Run(t, new(PeripheralSuite))
}
