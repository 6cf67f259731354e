package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/scheduler"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// countingTask ticks on a fixed interval and counts invocations.
type countingTask struct {
	name     string
	interval time.Duration
	ticks    atomic.Int64
	active   atomic.Int64
	overlap  atomic.Bool
	delay    time.Duration
	panics   bool
}

func (t *countingTask) Name() string            { return t.name }
func (t *countingTask) Interval() time.Duration { return t.interval }

func (t *countingTask) Tick(ctx context.Context) error {
	if t.active.Add(1) > 1 {
		t.overlap.Store(true)
	}
	defer t.active.Add(-1)

	t.ticks.Add(1)
	if t.panics {
		panic("tick blew up")
	}
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	return nil
}

func TestPool(t *testing.T) {
	Convey("Given a pool of periodic tasks", t, func() {
		ctx := context.Background()

		Convey("When a fast task runs for a while", func() {
			task := &countingTask{name: "fast", interval: 10 * time.Millisecond}
			pool := scheduler.NewPool(task)
			pool.Start(ctx)
			time.Sleep(100 * time.Millisecond)
			pool.Stop()

			Convey("Then it should have ticked repeatedly", func() {
				So(task.ticks.Load(), ShouldBeGreaterThan, 3)
			})
		})

		Convey("When a task is slower than its own interval", func() {
			task := &countingTask{name: "slow", interval: 10 * time.Millisecond, delay: 35 * time.Millisecond}
			pool := scheduler.NewPool(task)
			pool.Start(ctx)
			time.Sleep(120 * time.Millisecond)
			pool.Stop()

			Convey("Then overlapping ticks are dropped, never run concurrently", func() {
				So(task.overlap.Load(), ShouldBeFalse)
				So(task.ticks.Load(), ShouldBeLessThan, 7)
			})
		})

		Convey("When one task panics on every tick", func() {
			bad := &countingTask{name: "bad", interval: 10 * time.Millisecond, panics: true}
			good := &countingTask{name: "good", interval: 10 * time.Millisecond}
			pool := scheduler.NewPool(bad, good)
			pool.Start(ctx)
			time.Sleep(100 * time.Millisecond)
			pool.Stop()

			Convey("Then its siblings keep running", func() {
				So(bad.ticks.Load(), ShouldBeGreaterThan, 1)
				So(good.ticks.Load(), ShouldBeGreaterThan, 3)
			})
		})

		Convey("When the pool is stopped", func() {
			task := &countingTask{name: "stopped", interval: 5 * time.Millisecond}
			pool := scheduler.NewPool(task)
			pool.Start(ctx)
			time.Sleep(30 * time.Millisecond)
			pool.Stop()
			after := task.ticks.Load()
			time.Sleep(50 * time.Millisecond)

			Convey("Then no tick runs after Stop returns", func() {
				So(task.ticks.Load(), ShouldEqual, after)
			})

			Convey("And stopping again is harmless", func() {
				So(pool.Stop, ShouldNotPanic)
			})
		})
	})
}
