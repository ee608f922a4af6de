package testutils

import (
	"sync"

	"github.com/srg/blepad/pkg/connection"
)

// SentFrame is one frame captured by RecordingSink.
type SentFrame struct {
	Handle string
	Frame  []byte
}

// RecordingSink captures frames handed to it. It serves both as a sampler sink
// and as a transport writer.
type RecordingSink struct {
	mu   sync.Mutex
	sent []SentFrame
}

func (r *RecordingSink) Send(h connection.Handle, frame []byte) {
	id := ""
	if h != nil {
		id = h.ID()
	}
	r.mu.Lock()
	r.sent = append(r.sent, SentFrame{Handle: id, Frame: append([]byte(nil), frame...)})
	r.mu.Unlock()
}

func (r *RecordingSink) WriteFrame(h connection.Handle, frame []byte) error {
	r.Send(h, frame)
	return nil
}

// Sent returns everything captured so far.
func (r *RecordingSink) Sent() []SentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SentFrame(nil), r.sent...)
}

// Frames returns only the frame bytes.
func (r *RecordingSink) Frames() [][]byte {
	sent := r.Sent()
	out := make([][]byte, len(sent))
	for i, s := range sent {
		out[i] = s.Frame
	}
	return out
}

// Reset forgets captured frames.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
