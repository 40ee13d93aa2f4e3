package synapse

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/admission"
	"github.com/jonahkesoyan/bittensor/metrics"
	"github.com/jonahkesoyan/bittensor/protocol"
)

// stubSynapse is a bare synapse for driving the dispatcher directly.
type stubSynapse struct{ base }

func newStubSynapse(opts ...Option) *stubSynapse {
	return &stubSynapse{base: newBase("stub", opts...)}
}

// stubCall is a call with fixed shapes and a fresh envelope.
type stubCall struct{ env *protocol.Envelope }

func newStubCall(t *testing.T, timeout time.Duration) *stubCall {
	t.Helper()
	env, err := protocol.NewEnvelope("stub", true, "sender", "receiver", timeout)
	require.NoError(t, err)
	return &stubCall{env: env}
}

func (c *stubCall) Env() *protocol.Envelope { return c.env }
func (c *stubCall) InputShapes() []int      { return []int{1} }
func (c *stubCall) OutputShapes() []int     { return []int{1} }

func newTestDispatcher(t *testing.T, cfg admission.Config) (*Dispatcher, *metrics.Metrics) {
	t.Helper()
	q := admission.New(cfg)
	t.Cleanup(q.Close)
	m := metrics.New()
	return NewDispatcher("receiver", q, slog.Default(), m), m
}

func TestApplySuccess(t *testing.T) {
	d, m := newTestDispatcher(t, admission.Config{})
	call := newStubCall(t, time.Second)

	ran := false
	d.Apply(context.Background(), newStubSynapse(), call, func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.True(t, ran)
	assert.True(t, call.env.Completed())
	assert.Equal(t, protocol.CodeSuccess, call.env.Code())
	assert.Equal(t, "Success", call.env.Message())
	assert.Equal(t, uint64(1), m.Snapshot().Success)
	assert.Equal(t, int64(0), m.Snapshot().Inflight)
}

func TestApplyBlacklistShortCircuits(t *testing.T) {
	d, m := newTestDispatcher(t, admission.Config{})
	call := newStubCall(t, time.Second)

	syn := newStubSynapse(WithBlacklist(func(call Call) (bool, string) {
		return call.Env().Sender() == "sender", "sender is banned"
	}))

	ran := false
	d.Apply(context.Background(), syn, call, func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.False(t, ran, "handler must never run for blacklisted calls")
	assert.Equal(t, protocol.CodeBlacklisted, call.env.Code())
	assert.Equal(t, "sender is banned", call.env.Message())
	assert.True(t, call.env.Completed())
	assert.Equal(t, uint64(1), m.Snapshot().Blacklisted)
}

func TestApplyOverloadedIsDistinct(t *testing.T) {
	// Ceiling of one: a blocked task fills the queue, the next Apply must
	// come back Overloaded without waiting.
	q := admission.New(admission.Config{MaxWorkers: 1, MaxConcurrent: 1})
	t.Cleanup(q.Close)
	d := NewDispatcher("receiver", q, slog.Default(), nil)

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := q.Submit(1.0, time.Time{}, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started
	defer close(release)

	call := newStubCall(t, time.Second)
	d.Apply(context.Background(), newStubSynapse(), call, func(ctx context.Context) error {
		return nil
	})

	assert.Equal(t, protocol.CodeOverloaded, call.env.Code())
	assert.NotEqual(t, protocol.CodeUnknownError, call.env.Code())
	assert.Contains(t, call.env.Message(), "overloaded")
}

func TestApplyTimeoutIndependence(t *testing.T) {
	// The handler sleeps well past the envelope budget. The caller must
	// observe Timeout at roughly the budget, not at handler completion,
	// and the worker must stay usable.
	d, _ := newTestDispatcher(t, admission.Config{MaxWorkers: 1, MaxConcurrent: 4})
	call := newStubCall(t, 100*time.Millisecond)

	handlerDone := make(chan struct{})
	begin := time.Now()
	d.Apply(context.Background(), newStubSynapse(), call, func(ctx context.Context) error {
		defer close(handlerDone)
		time.Sleep(600 * time.Millisecond)
		return nil
	})
	waited := time.Since(begin)

	assert.Equal(t, protocol.CodeTimeout, call.env.Code())
	assert.Less(t, waited, 500*time.Millisecond, "caller waited for the handler instead of the deadline")
	assert.GreaterOrEqual(t, waited, 100*time.Millisecond)

	// The abandoned handler finishes on its own and the pool serves the
	// next call normally.
	<-handlerDone
	next := newStubCall(t, time.Second)
	d.Apply(context.Background(), newStubSynapse(), next, func(ctx context.Context) error {
		return nil
	})
	assert.Equal(t, protocol.CodeSuccess, next.env.Code())
}

func TestApplyPanicBecomesUnknownError(t *testing.T) {
	d, _ := newTestDispatcher(t, admission.Config{MaxWorkers: 2, MaxConcurrent: 8})

	crashed := newStubCall(t, time.Second)
	fine := newStubCall(t, time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Apply(context.Background(), newStubSynapse(), fine, func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}()

	d.Apply(context.Background(), newStubSynapse(), crashed, func(ctx context.Context) error {
		panic("model exploded")
	})
	<-done

	// Crash isolation: X fails with the panic text, Y is untouched.
	assert.Equal(t, protocol.CodeUnknownError, crashed.env.Code())
	assert.Contains(t, crashed.env.Message(), "model exploded")
	assert.Equal(t, protocol.CodeSuccess, fine.env.Code())
}

func TestApplyHandlerErrorBecomesUnknownError(t *testing.T) {
	d, _ := newTestDispatcher(t, admission.Config{})
	call := newStubCall(t, time.Second)

	d.Apply(context.Background(), newStubSynapse(), call, func(ctx context.Context) error {
		return errors.New("weights not loaded")
	})

	assert.Equal(t, protocol.CodeUnknownError, call.env.Code())
	assert.Equal(t, "weights not loaded", call.env.Message())
}

func TestApplyPriorityFeedsQueue(t *testing.T) {
	// One busy worker; a high and a low priority call queued behind it
	// must execute high first.
	q := admission.New(admission.Config{MaxWorkers: 1, MaxConcurrent: 16})
	t.Cleanup(q.Close)
	d := NewDispatcher("receiver", q, slog.Default(), nil)

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := q.Submit(99, time.Time{}, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	syn := newStubSynapse(WithPriority(func(call Call) float64 {
		if call.Env().Sender() == "sender" {
			return 5.0
		}
		return 1.0
	}))

	order := make(chan string, 2)
	run := func(call *stubCall, label string, wait *chan struct{}) {
		d.Apply(context.Background(), syn, call, func(ctx context.Context) error {
			order <- label
			return nil
		})
		close(*wait)
	}

	lowEnv, err := protocol.NewEnvelope("stub", true, "other", "receiver", time.Second)
	require.NoError(t, err)
	low := &stubCall{env: lowEnv}
	high := newStubCall(t, time.Second)

	lowDone, highDone := make(chan struct{}), make(chan struct{})
	go run(low, "low", &lowDone)
	time.Sleep(20 * time.Millisecond) // low is queued first
	go run(high, "high", &highDone)
	time.Sleep(20 * time.Millisecond)

	close(release)
	<-lowDone
	<-highDone

	assert.Equal(t, "high", <-order)
	assert.Equal(t, "low", <-order)
}
