package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/go-ble/ble"
)

// FakeNotifier is a ble.Notifier that records writes. Close (or Unsubscribe)
// ends the subscription the way a host disabling notifications would.
type FakeNotifier struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	writes [][]byte
	err    error
}

// NewFakeNotifier creates a live subscription.
func NewFakeNotifier() *FakeNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &FakeNotifier{ctx: ctx, cancel: cancel}
}

func (n *FakeNotifier) Context() context.Context { return n.ctx }

func (n *FakeNotifier) Write(b []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return 0, n.err
	}
	if n.ctx.Err() != nil {
		return 0, errors.New("notifier closed")
	}
	n.writes = append(n.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (n *FakeNotifier) Close() error {
	n.cancel()
	return nil
}

func (n *FakeNotifier) Cap() int { return 20 }

// Unsubscribe ends the subscription.
func (n *FakeNotifier) Unsubscribe() { n.cancel() }

// FailWith makes subsequent writes return err.
func (n *FakeNotifier) FailWith(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

// Writes returns a copy of everything written so far.
func (n *FakeNotifier) Writes() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.writes...)
}

// FakeConn is a ble.Conn that only knows its peer address. Other methods panic.
type FakeConn struct {
	ble.Conn
	Remote ble.Addr
}

func (c *FakeConn) RemoteAddr() ble.Addr { return c.Remote }

// FakeRequest is a ble.Request from the given peer address.
type FakeRequest struct {
	conn *FakeConn
	data []byte
}

// NewFakeRequest creates a request coming from addr.
func NewFakeRequest(addr string, data []byte) *FakeRequest {
	return &FakeRequest{conn: &FakeConn{Remote: ble.NewAddr(addr)}, data: data}
}

func (r *FakeRequest) Conn() ble.Conn { return r.conn }
func (r *FakeRequest) Data() []byte   { return r.data }
func (r *FakeRequest) Offset() int    { return 0 }

// FakeResponse is a ble.ResponseWriter collecting the written value.
type FakeResponse struct {
	ble.ResponseWriter
	Value []byte
}

func (r *FakeResponse) Write(b []byte) (int, error) {
	r.Value = append(r.Value, b...)
	return len(b), nil
}
