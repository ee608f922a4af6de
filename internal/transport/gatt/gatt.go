// Package gatt exposes the gamepad as a BLE HID-over-GATT peripheral.
//
// A host "connects" when it subscribes to the Report characteristic and
// "disconnects" when that subscription ends. Both events feed the
// connection.Tracker, which holds the most recent subscriber. Every report is
// notified to all hosts still subscribed; the tracker only goes Disconnected
// when the last of them leaves.
package gatt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/pkg/connection"
)

// Standard HID-over-GATT UUIDs.
var (
	HIDServiceUUID         = ble.UUID16(0x1812)
	HIDInformationUUID     = ble.UUID16(0x2A4A)
	ReportMapUUID          = ble.UUID16(0x2A4B)
	HIDControlPointUUID    = ble.UUID16(0x2A4C)
	ReportUUID             = ble.UUID16(0x2A4D)
	ProtocolModeUUID       = ble.UUID16(0x2A4E)
	ReportReferenceUUID    = ble.UUID16(0x2908)
	LayoutCharacteristicID = ble.MustParse("8f3c0001-6a4e-4f0b-9b65-6270616400a1")
)

const (
	reportTypeInput    = 0x01
	protocolModeReport = 0x01
)

// ErrNotSubscribed is returned by WriteFrame when the handle has no live
// subscription.
var ErrNotSubscribed = errors.New("host not subscribed")

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Options configures a Peripheral.
type Options struct {
	Name     string
	Layout   report.Layout
	ReportID uint8
}

// Peripheral serves the HID service on a ble.Device.
type Peripheral struct {
	dev     ble.Device
	tracker *connection.Tracker
	opts    Options
	logger  *logrus.Logger

	peers *hashmap.Map[string, *subscriber]

	mu   sync.RWMutex
	last []byte
}

// subscriber is one host with notifications enabled. It doubles as the
// connection handle.
type subscriber struct {
	addr string
	n    ble.Notifier
}

func (s *subscriber) ID() string { return s.addr }

// NewPeripheral creates a peripheral. Call Serve to publish it.
func NewPeripheral(dev ble.Device, tracker *connection.Tracker, opts Options, logger *logrus.Logger) *Peripheral {
	if logger == nil {
		logger = noopLogger
	}
	if opts.ReportID == 0 {
		opts.ReportID = 1
	}
	return &Peripheral{
		dev:     dev,
		tracker: tracker,
		opts:    opts,
		logger:  logger,
		peers:   hashmap.New[string, *subscriber](),
		last:    report.Encode(opts.Layout, report.Report{}),
	}
}

// Service builds the HID service definition.
func (p *Peripheral) Service() *ble.Service {
	svc := ble.NewService(HIDServiceUUID)

	// bcdHID 1.11, no country code, normally connectable
	svc.NewCharacteristic(HIDInformationUUID).SetValue([]byte{0x11, 0x01, 0x00, 0x02})
	svc.NewCharacteristic(ReportMapUUID).SetValue(report.Descriptor(p.opts.Layout, p.opts.ReportID))
	svc.NewCharacteristic(ProtocolModeUUID).SetValue([]byte{protocolModeReport})
	svc.NewCharacteristic(HIDControlPointUUID).HandleWrite(
		ble.WriteHandlerFunc(func(req ble.Request, _ ble.ResponseWriter) {
			p.logger.WithField("value", req.Data()).Debug("HID control point write")
		}))

	rc := svc.NewCharacteristic(ReportUUID)
	rc.HandleRead(ble.ReadHandlerFunc(p.handleRead))
	rc.HandleNotify(ble.NotifyHandlerFunc(p.handleNotify))
	rc.NewDescriptor(ReportReferenceUUID).SetValue([]byte{p.opts.ReportID, reportTypeInput})

	svc.NewCharacteristic(LayoutCharacteristicID).SetValue([]byte(p.opts.Layout.String()))

	return svc
}

// Serve registers the service and advertises until ctx is done.
func (p *Peripheral) Serve(ctx context.Context) error {
	if err := p.dev.AddService(p.Service()); err != nil {
		return fmt.Errorf("failed to add HID service: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"name":   p.opts.Name,
		"layout": p.opts.Layout.String(),
	}).Info("Advertising gamepad")

	err := p.dev.AdvertiseNameAndServices(ctx, p.opts.Name, HIDServiceUUID)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("advertising failed: %w", err)
	}
	return ctx.Err()
}

// WriteFrame notifies every subscribed host. h is the host the tracker held
// when the frame was produced and only labels the error when nobody is
// subscribed. It implements transport.Writer.
func (p *Peripheral) WriteFrame(h connection.Handle, frame []byte) error {
	p.mu.Lock()
	p.last = append(p.last[:0], frame...)
	p.mu.Unlock()

	var (
		notified int
		errs     []error
	)
	p.peers.Range(func(addr string, sub *subscriber) bool {
		notified++
		if _, err := sub.n.Write(frame); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", addr, err))
		}
		return true
	})

	if notified == 0 {
		if h == nil {
			return ErrNotSubscribed
		}
		return fmt.Errorf("%w: %s", ErrNotSubscribed, h.ID())
	}
	return errors.Join(errs...)
}

// Subscribers returns the number of hosts with notifications enabled.
func (p *Peripheral) Subscribers() int {
	return p.peers.Len()
}

// LastFrame returns the most recently written frame.
func (p *Peripheral) LastFrame() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.last...)
}

func (p *Peripheral) handleRead(_ ble.Request, rsp ble.ResponseWriter) {
	if _, err := rsp.Write(p.LastFrame()); err != nil {
		p.logger.WithError(err).Debug("Report read failed")
	}
}

// handleNotify runs for the lifetime of one subscription.
func (p *Peripheral) handleNotify(req ble.Request, n ble.Notifier) {
	sub := &subscriber{addr: remoteAddr(req), n: n}
	p.peers.Set(sub.addr, sub)
	p.tracker.SetConnected(sub)

	p.logger.WithFields(logrus.Fields{
		"host": sub.addr,
		"cap":  n.Cap(),
	}).Debug("Report notifications enabled")

	<-n.Context().Done()

	// a newer subscription from the same address may already own the slot
	if cur, ok := p.peers.Get(sub.addr); ok && cur == sub {
		p.peers.Del(sub.addr)
		if next := p.anySubscriber(); next != nil {
			p.tracker.Handover(sub, next)
		} else {
			p.tracker.ClearIf(sub)
		}
	}

	p.logger.WithField("host", sub.addr).Debug("Report notifications disabled")
}

func (p *Peripheral) anySubscriber() *subscriber {
	var found *subscriber
	p.peers.Range(func(_ string, sub *subscriber) bool {
		found = sub
		return false
	})
	return found
}

func remoteAddr(req ble.Request) string {
	if req == nil || req.Conn() == nil || req.Conn().RemoteAddr() == nil {
		return "unknown"
	}
	return req.Conn().RemoteAddr().String()
}
