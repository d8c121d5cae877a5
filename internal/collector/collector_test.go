package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// WorkerPool
// ---------------------------------------------------------------------------

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		workers, want int
	}{
		{4, 4},
		{1, 1},
		{0, 1},
		{-2, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cap(NewWorkerPool(tt.workers).sem), "workers=%d", tt.workers)
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	done := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestWorkerPool_SubmitWhenFull(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want error
	}{
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 50*time.Millisecond)
		}, context.DeadlineExceeded},
		{"cancelled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(1)
			blocker := make(chan struct{})
			defer close(blocker)
			require.NoError(t, pool.Submit(context.Background(), func() { <-blocker }))

			ctx, cancel := tt.ctx()
			defer cancel()
			assert.ErrorIs(t, pool.Submit(ctx, func() {}), tt.want)
		})
	}
}

func TestWorkerPool_GoWaitsForAll(t *testing.T) {
	pool := NewWorkerPool(2)
	var (
		mu   sync.Mutex
		seen []int
	)
	tasks := make([]func(), 5)
	for i := range tasks {
		tasks[i] = func() {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
		}
	}

	require.NoError(t, pool.Go(context.Background(), tasks...))
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, seen, "every task finished before Go returned")
}

func TestWorkerPool_GoBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)
	var running, peak atomic.Int32
	task := func() {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
	}

	require.NoError(t, pool.Go(context.Background(), task, task, task, task, task, task))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_GoStopsOnCancel(t *testing.T) {
	pool := NewWorkerPool(1)
	release := make(chan struct{})
	var ran atomic.Int32

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	go func() {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	err := pool.Go(ctx,
		func() { ran.Add(1); <-release },
		func() { ran.Add(1) },
		func() { ran.Add(1) },
	)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), ran.Load(), "queued tasks are skipped, the started one is waited for")
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

type mockCollector struct {
	name     string
	interval time.Duration
	calls    atomic.Int32
	errs     []error // returned in order; the last one repeats
	deadline atomic.Bool
}

func (m *mockCollector) Name() string            { return m.name }
func (m *mockCollector) Interval() time.Duration { return m.interval }
func (m *mockCollector) Collect(ctx context.Context) error {
	n := int(m.calls.Add(1))
	if _, ok := ctx.Deadline(); ok {
		m.deadline.Store(true)
	}
	if len(m.errs) == 0 {
		return nil
	}
	return m.errs[min(n, len(m.errs))-1]
}

func TestRun_ImmediateCollectThenInterval(t *testing.T) {
	mc := &mockCollector{name: "cib:prod", interval: 50 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, Run(ctx, mc), context.DeadlineExceeded)
	assert.GreaterOrEqual(t, int(mc.calls.Load()), 3, "immediate poll plus at least two ticks")
}

func TestRun_PollIsBoundedByInterval(t *testing.T) {
	mc := &mockCollector{name: "cib:prod", interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, mc) }()
	require.Eventually(t, func() bool { return mc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.True(t, mc.deadline.Load(), "a poll gets a deadline even when the parent has none")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	mc := &mockCollector{name: "cib:dr", interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, mc) }()

	require.Eventually(t, func() bool { return mc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, int32(1), mc.calls.Load())
}

func TestRun_ContinuesAfterFailures(t *testing.T) {
	boom := errors.New("cibadmin timed out")
	mc := &mockCollector{
		name:     "cib:prod",
		interval: 20 * time.Millisecond,
		errs:     []error{boom, boom, nil},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, Run(ctx, mc), context.DeadlineExceeded)
	assert.GreaterOrEqual(t, int(mc.calls.Load()), 4, "failures and the recovery are all followed by further polls")
}
