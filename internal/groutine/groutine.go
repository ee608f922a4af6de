// Package groutine starts goroutines that carry a name in their context and in
// their pprof labels, so long-lived loops are easy to spot in profiles and
// goroutine dumps.
package groutine

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "goroutine_name"

// Go runs fn in a new named goroutine and returns a channel closed when fn
// returns.
//
//	done := groutine.Go(ctx, "report-tx", func(ctx context.Context) {
//	    // drain loop
//	})
//	<-done
//
// A nil parent is treated as context.Background().
func Go(parent context.Context, name string, fn func(ctx context.Context)) <-chan struct{} {
	if parent == nil {
		parent = context.Background()
	}

	done := make(chan struct{})
	labels := pprof.Labels("goroutine_name", name)

	go func() {
		defer close(done)
		pprof.Do(parent, labels, func(ctx context.Context) {
			fn(context.WithValue(ctx, nameKey, name))
		})
	}()

	return done
}

// GetName returns the name given to Go, or "" outside such a goroutine.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(nameKey).(string); ok {
		return s
	}
	return ""
}
