package ringchan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := New[int](3)
	for i := 0; i < 10; i++ {
		r.Push(i)
	}
	require.Equal(t, 3, r.Len())

	var got []int
	for {
		v, ok := r.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{7, 8, 9}, got)
	assert.Equal(t, Metrics{Written: 10, Overwritten: 7, Processed: 3}, r.Metrics())
}

func TestRing_PushReportsEvictions(t *testing.T) {
	r := New[string](1)
	assert.Equal(t, 0, r.Push("a"))
	assert.Equal(t, 1, r.Push("b"))

	assert.False(t, r.TryPush("c"))
	v, ok := r.TryPop()
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.True(t, r.TryPush("c"))
}

func TestRing_PopHonoursContext(t *testing.T) {
	r := New[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r.Push(5)
	v, err := r.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestRing_ConcurrentProducersNeverBlock(t *testing.T) {
	r := New[int](2)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.Push(i)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producers blocked")
	}

	m := r.Metrics()
	assert.Equal(t, int64(4000), m.Written)
	assert.Equal(t, int64(4000-r.Len()), m.Overwritten)
}
