// Package connection tracks the single host link of the gamepad peripheral.
//
// The transport side (BLE event callbacks) writes the state, the sampling loop
// reads it once per tick. Every access goes through one mutex so readers never
// see a half-updated pair of flag and handle.
package connection

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handle identifies one live link to a host.
type Handle interface {
	// ID is stable for the lifetime of the link, e.g. the peer address.
	ID() string
}

// StringHandle is a Handle backed by a plain identifier.
type StringHandle string

func (h StringHandle) ID() string { return string(h) }

// State is a consistent snapshot of the connection.
type State struct {
	Connected bool
	Handle    Handle
	// Generation increases on every SetConnected, so a consumer can tell a
	// reconnect apart from a link that never dropped.
	Generation uint64
}

// Observer is notified after every state change, outside the lock.
type Observer func(State)

// Tracker holds the connected flag and current handle.
// The zero value is not usable; call NewTracker.
type Tracker struct {
	mu         sync.Mutex
	connected  bool
	handle     Handle
	generation uint64
	observers  []Observer
	logger     *logrus.Logger
}

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// NewTracker creates a disconnected tracker.
func NewTracker(logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = noopLogger
	}
	return &Tracker{logger: logger}
}

// SetConnected records a new link. A handle already held is replaced; the last
// host to connect wins.
func (t *Tracker) SetConnected(h Handle) {
	t.mu.Lock()
	prev := t.handle
	t.connected = true
	t.handle = h
	t.generation++
	st := t.snapshotLocked()
	t.mu.Unlock()

	entry := t.logger.WithFields(logrus.Fields{
		"handle":     handleID(h),
		"generation": st.Generation,
	})
	if prev != nil {
		entry = entry.WithField("replaced", handleID(prev))
	}
	entry.Info("Host connected")

	t.notify(st)
}

// ClearConnected marks the link as gone, whatever handle it had.
func (t *Tracker) ClearConnected() {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return
	}
	prev := t.handle
	t.connected = false
	t.handle = nil
	st := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.WithField("handle", handleID(prev)).Info("Host disconnected")
	t.notify(st)
}

// ClearIf clears the state only when h is still the current handle. A late
// disconnect of a link that has already been replaced is ignored.
func (t *Tracker) ClearIf(h Handle) bool {
	t.mu.Lock()
	if !t.connected || t.handle == nil || h == nil || t.handle.ID() != h.ID() {
		t.mu.Unlock()
		t.logger.WithField("handle", handleID(h)).Debug("Ignoring disconnect of stale handle")
		return false
	}
	t.connected = false
	t.handle = nil
	st := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.WithField("handle", handleID(h)).Info("Host disconnected")
	t.notify(st)
	return true
}

// Handover moves the link from one handle to another when from is still the
// current handle, as if to had just connected. It returns false and changes
// nothing otherwise.
func (t *Tracker) Handover(from, to Handle) bool {
	t.mu.Lock()
	if !t.connected || t.handle == nil || from == nil || to == nil || t.handle.ID() != from.ID() {
		t.mu.Unlock()
		return false
	}
	t.handle = to
	t.generation++
	st := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.WithFields(logrus.Fields{
		"handle":     handleID(to),
		"replaced":   handleID(from),
		"generation": st.Generation,
	}).Info("Host connected")

	t.notify(st)
	return true
}

// Snapshot returns the flag and handle as read together.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// IsConnected returns whether a host is connected.
func (t *Tracker) IsConnected() bool {
	return t.Snapshot().Connected
}

// Subscribe registers fn for state changes.
func (t *Tracker) Subscribe(fn Observer) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

func (t *Tracker) snapshotLocked() State {
	return State{Connected: t.connected, Handle: t.handle, Generation: t.generation}
}

func (t *Tracker) notify(st State) {
	t.mu.Lock()
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(st)
	}
}

func handleID(h Handle) string {
	if h == nil {
		return ""
	}
	return h.ID()
}
