package openimage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// outcome is how an isolated classifier call ended.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeTimeout
)

func (o outcome) String() string {
	switch o {
	case outcomeSuccess:
		return "success"
	case outcomeTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// errClassifierPanic wraps a recovered panic from a classifier.
var errClassifierPanic = errors.New("openimage: classifier panicked")

// runIsolated runs fn in its own goroutine bounded by timeout. A panic in fn
// is recovered and reported as a failure. On timeout runIsolated returns
// immediately; fn sees its context cancelled and its result is discarded.
func runIsolated[T any](ctx context.Context, timeout time.Duration, tag string, onPanic func(string, any),
	fn func(context.Context) (T, error),
) (T, outcome, error) {
	type result struct {
		val T
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if onPanic != nil {
					onPanic(tag, r)
				}
				done <- result{err: fmt.Errorf("%w: %v", errClassifierPanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil {
			return zero, outcomeFailure, r.err
		}
		return r.val, outcomeSuccess, nil
	case <-ctx.Done():
		return zero, outcomeTimeout, ctx.Err()
	}
}
