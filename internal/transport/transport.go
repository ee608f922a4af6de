// Package transport moves encoded report frames from the sampling loop to the
// radio without ever blocking the loop.
//
// Send copies the frame into a small overwrite-oldest ring; a named worker
// goroutine drains it and performs the write. When the link is slower than the
// tick the oldest frames are dropped, never the newest. Nothing is retried.
package transport

import (
	"context"
	"encoding/hex"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/groutine"
	"github.com/srg/blepad/internal/ringchan"
	"github.com/srg/blepad/pkg/connection"
)

// WorkerName labels the drain goroutine.
const WorkerName = "report-tx"

// Writer delivers one frame to the host behind h.
type Writer interface {
	WriteFrame(h connection.Handle, frame []byte) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(h connection.Handle, frame []byte) error

func (f WriterFunc) WriteFrame(h connection.Handle, frame []byte) error { return f(h, frame) }

type outgoing struct {
	handle connection.Handle
	frame  []byte
}

// Metrics counts what happened to enqueued frames.
type Metrics struct {
	Queued  int   `json:"queued"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Queue is a fire-and-forget frame sender.
type Queue struct {
	ring   *ringchan.Ring[outgoing]
	w      Writer
	logger *logrus.Logger

	sent   atomic.Int64
	failed atomic.Int64
	done   <-chan struct{}
}

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// NewQueue creates a queue holding at most capacity pending frames for w.
func NewQueue(w Writer, capacity int, logger *logrus.Logger) *Queue {
	if logger == nil {
		logger = noopLogger
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ring:   ringchan.New[outgoing](capacity),
		w:      w,
		logger: logger,
	}
}

// Start launches the drain worker. It stops when ctx is done; Done is closed
// once it has.
func (q *Queue) Start(ctx context.Context) {
	q.done = groutine.Go(ctx, WorkerName, q.drain)
}

// Done is closed after the worker exits. It is nil before Start.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Send enqueues a copy of frame for h and returns immediately.
func (q *Queue) Send(h connection.Handle, frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	if evicted := q.ring.Push(outgoing{handle: h, frame: buf}); evicted > 0 {
		q.logger.WithField("dropped", evicted).Debug("Transmit queue full, dropped oldest frame")
	}
}

// Metrics returns a snapshot of the counters.
func (q *Queue) Metrics() Metrics {
	rm := q.ring.Metrics()
	return Metrics{
		Queued:  q.ring.Len(),
		Sent:    q.sent.Load(),
		Failed:  q.failed.Load(),
		Dropped: rm.Overwritten,
	}
}

func (q *Queue) drain(ctx context.Context) {
	logger := q.logger.WithField("worker", groutine.GetName(ctx))
	logger.Debug("Transmit worker started")
	defer logger.Debug("Transmit worker stopped")

	for {
		out, err := q.ring.Pop(ctx)
		if err != nil {
			return
		}

		if err := q.w.WriteFrame(out.handle, out.frame); err != nil {
			q.failed.Add(1)
			logger.WithError(err).WithFields(logrus.Fields{
				"handle": handleID(out.handle),
				"frame":  hex.EncodeToString(out.frame),
			}).Warn("Failed to send report")
			continue
		}
		q.sent.Add(1)
	}
}

func handleID(h connection.Handle) string {
	if h == nil {
		return ""
	}
	return h.ID()
}
