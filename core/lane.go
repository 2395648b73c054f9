package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/najoast/unitrt/logging"
)

// Lane is a fixed-size pool of worker goroutines draining an unbounded FIFO
// queue. Tasks are taken by whichever worker is free, so a lane with more than
// one worker does not preserve submission order.
type Lane struct {
	name   string
	size   int
	logger logging.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	// scheduled tasks still pending, cancelled on shutdown
	timers map[*ScheduledTask]struct{}

	workers sync.WaitGroup
	done    chan struct{}

	active    atomic.Int32
	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
	panicked  atomic.Uint64
}

// NewLane starts a lane with size workers. Worker names are "<owner>/<name>-<n>".
func NewLane(owner, name string, size int, logger logging.Logger) *Lane {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	l := &Lane{
		name:   name,
		size:   size,
		logger: logger.With("lane", name),
		timers: make(map[*ScheduledTask]struct{}),
		done:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)

	l.workers.Add(size)
	for i := 1; i <= size; i++ {
		go l.worker(fmt.Sprintf("%s/%s-%d", owner, name, i))
	}
	go func() {
		l.workers.Wait()
		close(l.done)
	}()

	return l
}

// Name returns the lane name.
func (l *Lane) Name() string {
	return l.name
}

// Size returns the worker count.
func (l *Lane) Size() int {
	return l.size
}

// Submit enqueues task. It never blocks on queue capacity.
func (l *Lane) Submit(task func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.rejected.Add(1)
		return fmt.Errorf("%w: %s", ErrLaneClosed, l.name)
	}
	l.queue = append(l.queue, task)
	l.submitted.Add(1)
	l.cond.Signal()
	return nil
}

// Execute enqueues task.
func (l *Lane) Execute(task func()) error {
	return l.Submit(task)
}

// Shutdown stops accepting tasks and cancels pending scheduled tasks. Already
// queued tasks still run; Shutdown does not wait for them.
func (l *Lane) Shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	timers := make([]*ScheduledTask, 0, len(l.timers))
	for st := range l.timers {
		timers = append(timers, st)
	}
	l.cond.Broadcast()
	l.mu.Unlock()

	for _, st := range timers {
		st.Cancel()
	}
	l.logger.Debug("lane shut down")
}

// IsShutdown reports whether Shutdown was called.
func (l *Lane) IsShutdown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// AwaitTermination blocks until all workers exited after Shutdown, or ctx is done.
func (l *Lane) AwaitTermination(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current runtime statistics for this lane.
func (l *Lane) Stats() LaneStats {
	l.mu.Lock()
	queued := len(l.queue)
	closed := l.closed
	l.mu.Unlock()

	return LaneStats{
		Name:      l.name,
		Workers:   l.size,
		Queued:    queued,
		Active:    int(l.active.Load()),
		Shutdown:  closed,
		Submitted: l.submitted.Load(),
		Completed: l.completed.Load(),
		Rejected:  l.rejected.Load(),
		Panicked:  l.panicked.Load(),
	}
}

func (l *Lane) worker(name string) {
	defer l.workers.Done()

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(name, task)
	}
}

func (l *Lane) run(worker string, task func()) {
	l.active.Add(1)
	defer func() {
		l.active.Add(-1)
		l.completed.Add(1)
		if r := recover(); r != nil {
			l.panicked.Add(1)
			l.logger.Error("task panicked", "worker", worker, "panic", r)
		}
	}()
	task()
}

// ScheduledTask is a handle on a delayed or periodic task.
type ScheduledTask struct {
	stop chan struct{}
	once sync.Once
}

func newScheduledTask() *ScheduledTask {
	return &ScheduledTask{stop: make(chan struct{})}
}

// Cancel prevents further executions. Running executions are not interrupted.
func (s *ScheduledTask) Cancel() {
	s.once.Do(func() { close(s.stop) })
}

// Cancelled reports whether the task was cancelled.
func (s *ScheduledTask) Cancelled() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (l *Lane) track(st *ScheduledTask) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.rejected.Add(1)
		return fmt.Errorf("%w: %s", ErrLaneClosed, l.name)
	}
	l.timers[st] = struct{}{}
	return nil
}

func (l *Lane) untrack(st *ScheduledTask) {
	l.mu.Lock()
	delete(l.timers, st)
	l.mu.Unlock()
}

// Schedule enqueues task once after delay.
func (l *Lane) Schedule(delay time.Duration, task func()) (*ScheduledTask, error) {
	st := newScheduledTask()
	if err := l.track(st); err != nil {
		return nil, err
	}

	go func() {
		defer l.untrack(st)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-st.stop:
			return
		case <-timer.C:
		}
		if err := l.Submit(task); err != nil {
			l.logger.Debug("scheduled task dropped", "error", err)
		}
	}()

	return st, nil
}

// ScheduleAtFixedRate enqueues task after initialDelay and then every period.
// Executions may overlap when the task outlasts the period and the lane has
// more than one worker.
func (l *Lane) ScheduleAtFixedRate(initialDelay, period time.Duration, task func()) (*ScheduledTask, error) {
	if period <= 0 {
		return nil, fmt.Errorf("non-positive period %s", period)
	}
	st := newScheduledTask()
	if err := l.track(st); err != nil {
		return nil, err
	}

	go func() {
		defer l.untrack(st)

		timer := time.NewTimer(initialDelay)
		defer timer.Stop()
		select {
		case <-st.stop:
			return
		case <-timer.C:
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			if err := l.Submit(task); err != nil {
				l.logger.Debug("periodic task stopped", "error", err)
				return
			}
			select {
			case <-st.stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return st, nil
}

var _ Scheduler = (*Lane)(nil)
