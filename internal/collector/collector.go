// Package collector polls clusters on a schedule and publishes the derived
// snapshots.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Collector is one scheduled poll target.
type Collector interface {
	Name() string
	Collect(ctx context.Context) error
	Interval() time.Duration
}

// WorkerPool bounds the number of cluster commands in flight across all
// collectors, so many clusters sharing one process do not open unbounded
// SSH sessions.
type WorkerPool struct {
	sem chan struct{}
}

// NewWorkerPool creates a pool running at most maxWorkers tasks at once.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	return &WorkerPool{sem: make(chan struct{}, max(maxWorkers, 1))}
}

// Submit runs fn on the pool, blocking while every slot is busy. It returns
// ctx.Err() if the context ends before a slot frees up.
func (p *WorkerPool) Submit(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		go func() {
			defer func() { <-p.sem }()
			fn()
		}()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs every task on the pool and waits for the ones it started. If the
// context ends while tasks are still queued, the rest are skipped and the
// context error is returned once the started tasks finish.
func (p *WorkerPool) Go(ctx context.Context, tasks ...func()) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for _, task := range tasks {
		wg.Add(1)
		if err := p.Submit(ctx, func() {
			defer wg.Done()
			task()
		}); err != nil {
			wg.Done()
			return err
		}
	}
	return nil
}

// Run polls c immediately and then every Interval until ctx ends. Each poll
// is bounded by the interval so a hung remote command cannot stall the loop.
func Run(ctx context.Context, c Collector) error {
	name, interval := c.Name(), c.Interval()
	slog.Info("collector started", "name", name, "interval", interval)

	failures := 0
	poll := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := c.Collect(pctx)
		switch {
		case err == nil:
			if failures > 0 {
				slog.Info("collector recovered", "collector", name, "failures", failures)
			}
			failures = 0
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			// shutting down
		default:
			failures++
			slog.Error("collection failed", "collector", name, "consecutive", failures, "error", err)
		}
	}

	poll()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("collector stopped", "name", name)
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
