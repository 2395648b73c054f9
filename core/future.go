package core

import (
	"context"
	"sync"
)

// Future is the pending result of an asynchronous query. A resolved future
// carries either a value, "no value" (ok == false, nil error), or an error.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	ok    bool
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(v T, ok bool, err error) {
	f.once.Do(func() {
		f.value = v
		f.ok = ok
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future is resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future is resolved or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, bool, error) {
	select {
	case <-f.done:
		return f.value, f.ok, f.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}
