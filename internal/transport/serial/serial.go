// Package serial streams report frames over a pseudo-terminal, one lowercase
// hex line per frame, for tools that read gamepads from a serial port:
//
//	p, _ := serial.Open(serial.Options{Logger: logger})
//	defer p.Close()
//	fmt.Println(p.Name()) // "/dev/pts/7"
//	_ = p.WriteFrame(nil, []byte{0x01, 0x02, 0x7f, 0x00}) // "01027f00\n"
//
// Writes never block: lines are queued in a byte ring and a background loop
// moves them to the PTY master. A line that does not fit is dropped whole.
package serial

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"github.com/srg/blepad/internal/groutine"
	"github.com/srg/blepad/pkg/connection"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	DefaultBufferSize  = 4096
	DefaultPollTimeout = 50 * time.Millisecond
)

// ErrOverflow is returned when the write ring has no room for a frame.
var ErrOverflow = errors.New("serial write buffer full")

type Options struct {
	BufferSize  int
	PollTimeout time.Duration
	Logger      *logrus.Logger
}

// Stats counts frames and bytes through the PTY.
type Stats struct {
	Frames       uint64
	Dropped      uint64
	BytesWritten uint64
	Queued       int
}

// PTY is a transport.Writer backed by a pseudo-terminal pair.
type PTY struct {
	master *os.File
	slave  *os.File // kept open so the device node outlives external readers
	name   string

	buf    *ringbuffer.RingBuffer
	wake   chan struct{}
	pollMs int
	logger *logrus.Logger

	mu     sync.Mutex // serializes frame lines into buf
	closed atomic.Bool
	cancel context.CancelFunc
	done   <-chan struct{}

	frames  atomic.Uint64
	dropped atomic.Uint64
	written atomic.Uint64
}

var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Open creates the PTY pair and starts the write loop.
func Open(opts Options) (*PTY, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger
	}

	master, slave, err := openRaw()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &PTY{
		master: master,
		slave:  slave,
		name:   slave.Name(),
		buf:    ringbuffer.New(opts.BufferSize),
		wake:   make(chan struct{}, 1),
		pollMs: int(opts.PollTimeout / time.Millisecond),
		logger: opts.Logger,
		cancel: cancel,
	}
	p.done = groutine.Go(ctx, "pty-write", p.writeLoop)

	p.logger.WithField("tty", p.name).Info("Serial report stream ready")
	return p, nil
}

// openRaw opens a PTY pair with the slave in raw mode and a nonblocking master.
func openRaw() (*os.File, *os.File, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create PTY (check permissions and available PTY devices): %w", err)
	}

	fail := func(step string, err error) (*os.File, *os.File, error) {
		return nil, nil, errors.Join(
			fmt.Errorf("failed to set PTY %s %s: %w", slave.Name(), step, err),
			master.Close(),
			slave.Close(),
		)
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		return fail("to raw mode", err)
	}
	if err := syscall.SetNonblock(int(master.Fd()), true); err != nil {
		return fail("nonblocking", err)
	}
	return master, slave, nil
}

// Name returns the slave device path, e.g. /dev/pts/5.
func (p *PTY) Name() string {
	return p.name
}

// WriteFrame queues frame as one hex line. h is ignored; a PTY has a single
// reader.
func (p *PTY) WriteFrame(_ connection.Handle, frame []byte) error {
	if p.closed.Load() {
		return os.ErrClosed
	}

	line := make([]byte, hex.EncodedLen(len(frame))+1)
	hex.Encode(line, frame)
	line[len(line)-1] = '\n'

	p.mu.Lock()
	if p.buf.Free() < len(line) {
		p.mu.Unlock()
		p.dropped.Add(1)
		return fmt.Errorf("%w: %d bytes queued", ErrOverflow, p.buf.Length())
	}
	_, err := p.buf.Write(line)
	p.mu.Unlock()
	if err != nil {
		p.dropped.Add(1)
		return fmt.Errorf("serial: queue frame: %w", err)
	}

	p.frames.Add(1)
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *PTY) writeLoop(ctx context.Context) {
	master := p.master
	pollFd := []unix.PollFd{{Fd: int32(master.Fd()), Events: unix.POLLOUT}}
	chunk := make([]byte, 512)
	idle := time.Duration(p.pollMs) * time.Millisecond

	for {
		if p.buf.IsEmpty() {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			case <-time.After(idle):
			}
			continue
		}

		n, err := p.buf.TryRead(chunk)
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			p.logger.WithError(err).Warn("Serial ring read failed")
			continue
		}

		for off := 0; off < n; {
			w, err := master.Write(chunk[off:n])
			if w > 0 {
				off += w
				p.written.Add(uint64(w))
			}
			switch {
			case err == nil:
			case errors.Is(err, syscall.EINTR):
			case errors.Is(err, syscall.EAGAIN):
				// nobody is draining the slave; wait for room or shutdown
				if ctx.Err() != nil {
					return
				}
				if _, perr := unix.Poll(pollFd, p.pollMs); perr != nil && !errors.Is(perr, syscall.EINTR) {
					p.logger.WithError(perr).Debug("Serial poll failed")
				}
			case errors.Is(err, os.ErrClosed), errors.Is(err, syscall.EBADF):
				return
			default:
				p.logger.WithError(err).Warn("Serial write failed, stream stopped")
				return
			}
		}
	}
}

// Stats returns a snapshot of the counters.
func (p *PTY) Stats() Stats {
	return Stats{
		Frames:       p.frames.Load(),
		Dropped:      p.dropped.Load(),
		BytesWritten: p.written.Load(),
		Queued:       p.buf.Length(),
	}
}

// Close stops the write loop and closes both ends. Queued lines are discarded.
func (p *PTY) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.cancel()
	<-p.done
	return errors.Join(p.master.Close(), p.slave.Close())
}
