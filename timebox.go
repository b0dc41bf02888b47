package diabicus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultCaseTimeout bounds case tests and messages during calculator use.
	DefaultCaseTimeout = time.Second
	// DefaultCheckTimeout bounds case tests and messages during offline checks.
	DefaultCheckTimeout = 3 * time.Second
)

// Runner runs a function under a wall-clock deadline. A Runner holds no
// state between calls, so one value may be reused and shared freely.
type Runner struct {
	limit time.Duration
}

// NewRunner returns a Runner with the given limit; a non-positive limit
// selects DefaultCaseTimeout.
func NewRunner(limit time.Duration) Runner {
	if limit <= 0 {
		limit = DefaultCaseTimeout
	}
	return Runner{limit: limit}
}

func (r Runner) Limit() time.Duration {
	if r.limit <= 0 {
		return DefaultCaseTimeout
	}
	return r.limit
}

type outcome[T any] struct {
	v        T
	err      error
	panicked bool
	panicVal any
}

// Run calls fn on its own goroutine with a context that expires after the
// runner's limit. If fn has not returned by then, Run returns an error
// wrapping ErrTimeout and abandons it; fn should watch ctx to stop early.
// Errors returned by fn come back unchanged, and a panic in fn is re-raised
// on the calling goroutine.
func Run[T any](ctx context.Context, r Runner, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Limit())
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		var o outcome[T]
		defer func() {
			if p := recover(); p != nil {
				o.panicked, o.panicVal = true, p
			}
			done <- o
		}()
		o.v, o.err = fn(ctx)
	}()

	timedOut := func() bool { return errors.Is(ctx.Err(), context.DeadlineExceeded) }
	select {
	case o := <-done:
		if o.panicked {
			panic(o.panicVal)
		}
		// fn noticed our deadline before we did.
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && timedOut() {
			var zero T
			return zero, fmt.Errorf("%w after %s", ErrTimeout, r.Limit())
		}
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		if timedOut() {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, r.Limit())
		}
		return zero, ctx.Err()
	}
}

// isolate runs fn through Run and folds every failure, panics included,
// into a *CaseFault. It is the boundary that keeps a misbehaving case from
// reaching the caller.
func isolate[T any](ctx context.Context, r Runner, name string, phase CasePhase, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, &CaseFault{Case: name, Phase: phase, Err: &PanicError{Value: p}}
		}
	}()
	v, err = Run(ctx, r, fn)
	if err != nil {
		var zero T
		return zero, &CaseFault{Case: name, Phase: phase, Err: err}
	}
	return v, nil
}
