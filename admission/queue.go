package admission

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Queue sizing defaults, applied when a Config field is zero.
const (
	DefaultMaxWorkers    = 10
	DefaultMaxConcurrent = 400
)

var (
	// ErrOverloaded is returned by Submit when the queue already holds
	// MaxConcurrent tasks (queued plus running). It is the backpressure
	// signal: callers should surface it as a retryable condition, never
	// queue unboundedly.
	ErrOverloaded = errors.New("admission queue at capacity")
	// ErrQueueClosed is returned by Submit after Close, and resolves any
	// task that was still queued when the queue shut down.
	ErrQueueClosed = errors.New("admission queue closed")
	// ErrExpired resolves a task whose deadline passed before a worker
	// picked it up. The waiter is gone by then; the value exists so the
	// future is always resolved exactly once.
	ErrExpired = errors.New("task deadline passed before execution")
)

// PanicError wraps a recovered handler panic. The panic never escapes the
// worker; it surfaces as this error on the task's future.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// TaskFunc is the unit of work submitted to the queue. The context is the
// queue's own lifetime context: it is canceled when the queue closes, not
// when an individual caller stops waiting.
type TaskFunc func(ctx context.Context) error

// Config sizes a Queue.
type Config struct {
	// MaxWorkers is the fixed number of worker goroutines.
	MaxWorkers int
	// MaxConcurrent caps tasks simultaneously admitted (queued + running).
	MaxConcurrent int
	// Log receives worker-level events (recovered panics). Optional.
	Log *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Future resolves with the task's outcome: nil, the handler's error, a
// *PanicError, ErrExpired or ErrQueueClosed. Exactly one value is ever
// sent, into a buffered channel, so a waiter that gave up never blocks the
// worker.
type Future struct {
	ch chan error
}

// Done returns the channel carrying the task's resolution.
func (f *Future) Done() <-chan error { return f.ch }

func (f *Future) resolve(err error) {
	f.ch <- err
}

type task struct {
	priority float64
	seq      uint64
	deadline time.Time
	fn       TaskFunc
	future   *Future
}

// taskHeap orders by priority descending, then submission order ascending,
// so equal priorities are served first-come-first-served and cannot starve
// each other.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Queue is a bounded-concurrency executor: a fixed pool of workers draining
// a priority-ordered ready heap, with a hard ceiling on admitted tasks.
// It is the single point in the server where concurrency is deliberately
// bounded.
type Queue struct {
	cfg Config

	mu       sync.Mutex
	cond     *sync.Cond
	ready    taskHeap
	admitted int
	seq      uint64
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Queue and starts its workers. The queue runs until Close.
func New(cfg Config) *Queue {
	q := &Queue{cfg: cfg.withDefaults()}
	q.cond = sync.NewCond(&q.mu)
	q.ctx, q.cancel = context.WithCancel(context.Background())
	for i := 0; i < q.cfg.MaxWorkers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit admits one task. Higher priority runs first; among equal
// priorities, earlier submissions win. The deadline is the caller's budget:
// if it passes before a worker starts the task, the task is skipped and its
// future resolves ErrExpired. A zero deadline means no expiry.
//
// Submit never blocks. When the ceiling is reached it fails immediately
// with ErrOverloaded.
func (q *Queue) Submit(priority float64, deadline time.Time, fn TaskFunc) (*Future, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	if q.admitted >= q.cfg.MaxConcurrent {
		return nil, ErrOverloaded
	}
	q.admitted++
	q.seq++
	t := &task{
		priority: priority,
		seq:      q.seq,
		deadline: deadline,
		fn:       fn,
		future:   &Future{ch: make(chan error, 1)},
	}
	heap.Push(&q.ready, t)
	q.cond.Signal()
	return t.future, nil
}

// Load returns the number of currently admitted tasks and the ceiling.
func (q *Queue) Load() (admitted, ceiling int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.admitted, q.cfg.MaxConcurrent
}

// Workers returns the size of the fixed worker pool.
func (q *Queue) Workers() int { return q.cfg.MaxWorkers }

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.ready) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.ready) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		t := heap.Pop(&q.ready).(*task)
		q.mu.Unlock()

		q.run(t)

		q.mu.Lock()
		q.admitted--
		q.mu.Unlock()
	}
}

// run executes one task with panic containment. A panicking handler
// resolves its own future with a *PanicError and leaves the worker intact
// for the next task.
func (q *Queue) run(t *task) {
	if !t.deadline.IsZero() && time.Now().After(t.deadline) {
		t.future.resolve(ErrExpired)
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r}
				q.cfg.Log.Error("handler panic recovered", "panic", fmt.Sprint(r))
			}
		}()
		return t.fn(q.ctx)
	}()
	t.future.resolve(err)
}

// Close stops accepting submissions, resolves still-queued tasks with
// ErrQueueClosed, cancels the task context and waits for running handlers
// to return. It is safe to call once; the queue cannot be reused after.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	abandoned := q.ready
	q.ready = nil
	q.admitted -= len(abandoned)
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, t := range abandoned {
		t.future.resolve(ErrQueueClosed)
	}
	q.cancel()
	q.wg.Wait()
}
