package connection

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tests := []struct {
		name   string
		logger *logrus.Logger
	}{
		{"with provided logger", logrus.New()},
		{"with nil logger", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.logger)
			require.NotNil(t, tr)
			assert.NotNil(t, tr.logger)
			assert.Equal(t, State{}, tr.Snapshot())
		})
	}
}

func TestTracker_ConnectDisconnect(t *testing.T) {
	tr := NewTracker(nil)

	tr.SetConnected(StringHandle("aa:bb"))
	st := tr.Snapshot()
	assert.True(t, st.Connected)
	assert.Equal(t, "aa:bb", st.Handle.ID())
	assert.Equal(t, uint64(1), st.Generation)

	tr.ClearConnected()
	st = tr.Snapshot()
	assert.False(t, st.Connected)
	assert.Nil(t, st.Handle)
	assert.Equal(t, uint64(1), st.Generation, "disconnect keeps the generation")

	tr.SetConnected(StringHandle("aa:bb"))
	assert.Equal(t, uint64(2), tr.Snapshot().Generation)
}

func TestTracker_NewerConnectionWins(t *testing.T) {
	tr := NewTracker(nil)

	first := StringHandle("host-1")
	second := StringHandle("host-2")

	tr.SetConnected(first)
	tr.SetConnected(second)
	assert.Equal(t, "host-2", tr.Snapshot().Handle.ID())

	// the first link going down must not clear the second
	assert.False(t, tr.ClearIf(first))
	assert.True(t, tr.IsConnected())

	assert.True(t, tr.ClearIf(second))
	assert.False(t, tr.IsConnected())
	assert.False(t, tr.ClearIf(second))
}

func TestTracker_Handover(t *testing.T) {
	tr := NewTracker(nil)

	a := StringHandle("host-a")
	b := StringHandle("host-b")

	assert.False(t, tr.Handover(a, b), "nothing to hand over while disconnected")

	tr.SetConnected(a)
	tr.SetConnected(b)
	gen := tr.Snapshot().Generation

	var seen []State
	tr.Subscribe(func(st State) { seen = append(seen, st) })

	// only the current handle can hand over
	assert.False(t, tr.Handover(a, b))
	assert.Empty(t, seen)

	require.True(t, tr.Handover(b, a))
	st := tr.Snapshot()
	assert.True(t, st.Connected)
	assert.Equal(t, "host-a", st.Handle.ID())
	assert.Equal(t, gen+1, st.Generation, "a handover counts as a new link")
	require.Len(t, seen, 1)
	assert.Equal(t, st, seen[0])

	assert.False(t, tr.Handover(a, nil))
	assert.True(t, tr.ClearIf(a))
}

func TestTracker_ClearWhenDisconnectedIsQuiet(t *testing.T) {
	tr := NewTracker(nil)

	var calls int
	tr.Subscribe(func(State) { calls++ })

	tr.ClearConnected()
	assert.False(t, tr.ClearIf(nil))
	assert.Equal(t, 0, calls)
}

func TestTracker_Subscribe(t *testing.T) {
	tr := NewTracker(nil)

	var seen []State
	tr.Subscribe(func(st State) {
		// observers run outside the lock
		_ = tr.Snapshot()
		seen = append(seen, st)
	})
	tr.Subscribe(nil)

	tr.SetConnected(StringHandle("x"))
	tr.ClearConnected()

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Connected)
	assert.False(t, seen[1].Connected)
}

func TestTracker_ConcurrentSnapshotsAreConsistent(t *testing.T) {
	tr := NewTracker(nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.SetConnected(StringHandle(fmt.Sprintf("h%d", i)))
			tr.ClearConnected()
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		st := tr.Snapshot()
		if st.Connected {
			require.NotNil(t, st.Handle)
		} else {
			require.Nil(t, st.Handle)
		}
	}
}
