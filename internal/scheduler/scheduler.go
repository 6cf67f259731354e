// Package scheduler runs the detector pool: one ticker goroutine per
// registered task, each on its own cadence.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Task is one periodically executed unit of work. Satisfied by every
// detector.
type Task interface {
	Name() string
	Interval() time.Duration
	Tick(ctx context.Context) error
}

// Pool drives a fixed set of tasks until stopped. A pool is single-use:
// Start once, Stop once. Each session activation builds a fresh pool so
// no task state leaks across sessions.
type Pool struct {
	tasks []Task

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped sync.Once

	logger logger.Logger
}

// NewPool creates a pool over the given tasks.
func NewPool(tasks ...Task) *Pool {
	return &Pool{
		tasks:  tasks,
		logger: logger.Get().Named("scheduler"),
	}
}

// Start launches one goroutine per task. The goroutines stop when ctx is
// canceled or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, task := range p.tasks {
		p.wg.Add(1)
		go p.run(runCtx, task)
	}
}

// Stop cancels all task loops and blocks until every goroutine has
// returned. After Stop no task ticks again, including ticks already
// scheduled but not yet started.
func (p *Pool) Stop() {
	p.stopped.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}

// run is the per-task loop. The first tick fires one interval after
// start, not immediately. Ticks execute off the loop goroutine so a slow
// pass (a remote identity check, say) cannot stall the cadence; the
// inFlight guard drops, never queues, a tick whose predecessor is still
// running.
func (p *Pool) run(ctx context.Context, task Task) {
	defer p.wg.Done()

	ticker := time.NewTicker(task.Interval())
	defer ticker.Stop()

	var inFlight atomic.Bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !inFlight.CompareAndSwap(false, true) {
				metrics.RecordDetectorSkip(task.Name(), "tick_in_flight")
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer inFlight.Store(false)
				p.tick(ctx, task)
			}()
		}
	}
}

// tick runs one pass with panic containment so a crashing task cannot
// take down the pool or its siblings.
func (p *Pool) tick(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDetectorError(task.Name())
			p.logger.Error(ctx, "task panicked",
				logger.String("task", task.Name()),
				logger.Any("panic", r),
			)
		}
	}()

	start := time.Now()
	err := task.Tick(ctx)
	metrics.RecordDetectorTickLatency(task.Name(), float64(time.Since(start).Milliseconds()))
	metrics.RecordDetectorTick(task.Name())

	if err != nil {
		metrics.RecordDetectorError(task.Name())
		p.logger.Error(ctx, "task tick failed",
			logger.String("task", task.Name()),
			logger.Error(err),
		)
	}
}
