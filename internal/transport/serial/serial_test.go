package serial

import (
	"bufio"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/srg/blepad/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPTY(t *testing.T, opts Options) *PTY {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutils.NewTestHelper(t).Logger
	}
	p, err := Open(opts)
	if err != nil {
		t.Skipf("PTY not available: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func readLines(t *testing.T, name string, n int) []string {
	t.Helper()
	f, err := os.OpenFile(name, os.O_RDONLY|syscall.O_NOCTTY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	lines := make(chan string, n)
	go func() {
		r := bufio.NewReader(f)
		for i := 0; i < n; i++ {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			lines <- line
		}
	}()

	var got []string
	for i := 0; i < n; i++ {
		select {
		case l := <-lines:
			got = append(got, l)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d lines", len(got), n)
		}
	}
	return got
}

func TestPTY_StreamsHexLines(t *testing.T) {
	p := openPTY(t, Options{})
	assert.NotEmpty(t, p.Name())

	require.NoError(t, p.WriteFrame(nil, []byte{0x00, 0x0F, 0x00, 0x00}))
	require.NoError(t, p.WriteFrame(nil, []byte{0x01, 0x02, 0x7F, 0x00}))

	assert.Equal(t, []string{"000f0000\n", "01027f00\n"}, readLines(t, p.Name(), 2))

	assert.Eventually(t, func() bool { return p.Stats().BytesWritten == 18 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(2), p.Stats().Frames)
}

func TestPTY_OverflowDropsWholeFrames(t *testing.T) {
	p := openPTY(t, Options{BufferSize: 12})

	// stop the loop draining so the ring stays full
	p.cancel()
	<-p.done

	require.NoError(t, p.WriteFrame(nil, []byte{1, 2, 3, 4}))
	err := p.WriteFrame(nil, []byte{5, 6, 7, 8})
	assert.ErrorIs(t, err, ErrOverflow)

	st := p.Stats()
	assert.Equal(t, uint64(1), st.Frames)
	assert.Equal(t, uint64(1), st.Dropped)
	assert.Equal(t, 9, st.Queued)
}

func TestPTY_Close(t *testing.T) {
	p := openPTY(t, Options{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.WriteFrame(nil, []byte{1}), os.ErrClosed)
}
