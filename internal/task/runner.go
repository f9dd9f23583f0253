package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Runner executes a unit of work detached from the caller's lifecycle.
// Callers never observe the outcome; failures are the unit's own problem.
type Runner interface {
	Submit(name string, fn func(ctx context.Context))
}

// GoRunner spawns one goroutine per unit. There is no queue, no retry and
// no backpressure; an overload condition simply grows the number of
// in-flight goroutines. Each unit gets a fresh context with a timeout so
// a stuck write cannot leak a goroutine forever.
type GoRunner struct {
	timeout time.Duration
}

func NewGoRunner(timeout time.Duration) *GoRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoRunner{timeout: timeout}
}

func (r *GoRunner) Submit(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				slog.Error("background task panicked",
					"task", name,
					"error", fmt.Sprintf("%v", recovered),
					"stack", string(debug.Stack()))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		fn(ctx)
	}()
}

// SyncRunner executes units inline on the caller's goroutine. Tests use
// it to assert on background effects deterministically.
type SyncRunner struct{}

func (SyncRunner) Submit(name string, fn func(ctx context.Context)) {
	fn(context.Background())
}
