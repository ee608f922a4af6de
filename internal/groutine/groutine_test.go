package groutine

import (
	"context"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGo_NamesTheGoroutine(t *testing.T) {
	var name, label string
	done := Go(context.Background(), "sampler", func(ctx context.Context) {
		name = GetName(ctx)
		label, _ = pprof.Label(ctx, "goroutine_name")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
	assert.Equal(t, "sampler", name)
	assert.Equal(t, "sampler", label)
}

func TestGo_NilParent(t *testing.T) {
	//nolint:staticcheck // nil parent is part of the contract
	done := Go(nil, "nil-parent", func(ctx context.Context) {
		assert.NotNil(t, ctx)
	})
	<-done
}

func TestGetName_Outside(t *testing.T) {
	assert.Equal(t, "", GetName(context.Background()))
	//nolint:staticcheck
	assert.Equal(t, "", GetName(nil))
}
