package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder is a test handler that remembers what it received.
type recorder struct {
	mu   sync.Mutex
	msgs []any

	fail    bool
	panics  bool
	release chan struct{}

	startErr    error
	stopErr     error
	shutdownErr error

	starts    atomic.Int32
	stops     atomic.Int32
	shutdowns atomic.Int32
}

func (r *recorder) OnMessage(ctx context.Context, msg string) error {
	if r.release != nil {
		<-r.release
	}
	if r.panics {
		panic("boom")
	}
	if r.fail {
		return errors.New("cannot handle " + msg)
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnStart(ctx context.Context) error {
	r.starts.Add(1)
	return r.startErr
}

func (r *recorder) OnStop(ctx context.Context) error {
	r.stops.Add(1)
	return r.stopErr
}

func (r *recorder) OnShutdown(ctx context.Context) error {
	r.shutdowns.Add(1)
	return r.shutdownErr
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) received() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.msgs...)
}

var attrCount = Attribute[int]("count")

func (r *recorder) KnownAttributes() []AttributeDescriptor {
	return []AttributeDescriptor{attrCount}
}

func (r *recorder) OnGetAttribute(d AttributeDescriptor) (any, bool) {
	if d == attrCount {
		return r.count(), true
	}
	return nil, false
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ShutdownTimeout = 2 * time.Second
	return opts
}

func newTestContext(t *testing.T, units ...*Unit) *Context {
	t.Helper()
	rt := NewContext(testOptions())
	require.NoError(t, rt.AddUnits(units...))
	t.Cleanup(func() {
		_ = rt.Shutdown(context.Background())
	})
	return rt
}

func startedContext(t *testing.T, units ...*Unit) *Context {
	t.Helper()
	rt := newTestContext(t, units...)
	require.NoError(t, rt.Start(context.Background()))
	return rt
}

func mustRef(t *testing.T, rt *Context, id string) *Reference {
	t.Helper()
	ref, ok := rt.Reference(id)
	require.True(t, ok, "unit %s not registered", id)
	return ref
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
