package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/config"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/escalate"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// nullSink discards detector signals.
type nullSink struct{}

func (nullSink) Report(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool {
	return false
}

func (nullSink) Terminate(ctx context.Context, cause model.ViolationCategory, message string) {}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the agent wiring", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("PROCTOR_ADDR", ":8080")
			_ = os.Setenv("PROCTOR_EXAM_DURATION_MINUTES", "90")
			defer func() {
				_ = os.Unsetenv("PROCTOR_ADDR")
				_ = os.Unsetenv("PROCTOR_EXAM_DURATION_MINUTES")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ExamDurationMinutes, convey.ShouldEqual, 90)
			})
		})

		convey.Convey("When building the detector set from defaults", func() {
			cfg := config.New()
			source := capture.NewLatestSource()
			factory := detectorFactory(cfg, source, nil, nil, nil)

			tasks := factory(nullSink{})

			convey.Convey("Then every detector is present with its configured interval", func() {
				convey.So(tasks, convey.ShouldHaveLength, 6)

				intervals := make(map[string]time.Duration, len(tasks))
				for _, task := range tasks {
					intervals[task.Name()] = task.Interval()
				}
				convey.So(intervals["presence"], convey.ShouldEqual, 1*time.Second)
				convey.So(intervals["gaze"], convey.ShouldEqual, 2*time.Second)
				convey.So(intervals["liveness"], convey.ShouldEqual, 2*time.Second)
				convey.So(intervals["depth"], convey.ShouldEqual, 5*time.Second)
				convey.So(intervals["object"], convey.ShouldEqual, 3*time.Second)
				convey.So(intervals["identity"], convey.ShouldEqual, 15*time.Second)
			})

			convey.Convey("And each activation builds a fresh set", func() {
				again := factory(nullSink{})
				convey.So(again, convey.ShouldHaveLength, 6)
				convey.So(again[0], convey.ShouldNotEqual, tasks[0])
			})
		})

		convey.Convey("When mapping category configuration onto the escalator", func() {
			cfg := config.New()
			cfg.Categories["TAB_SWITCH"] = config.CategoryConfig{CooldownMS: 1, WarningLimit: 2}

			esc := escalate.New(escalatorOptions(cfg)...)

			convey.Convey("Then the overridden limit terminates", func() {
				ctx := context.Background()

				first := esc.Record(ctx, model.CategoryTabSwitch)
				time.Sleep(5 * time.Millisecond)
				second := esc.Record(ctx, model.CategoryTabSwitch)

				convey.So(first.Terminate, convey.ShouldBeFalse)
				convey.So(second.Terminate, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then a manager should be creatable on a fresh registry", func() {
				registry := prometheus.NewRegistry()
				manager := metrics.NewManager(metrics.WithRegistry(registry))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When building detectors with sub-second overrides", func() {
			cfg := config.New()
			cfg.Detectors["presence"] = config.DetectorConfig{IntervalMS: 50}
			source := capture.NewLatestSource()

			tasks := detectorFactory(cfg, source, nil, nil, nil)(nullSink{})

			convey.Convey("Then the override is honored", func() {
				for _, task := range tasks {
					if task.Name() == "presence" {
						convey.So(task.Interval(), convey.ShouldEqual, 50*time.Millisecond)
					}
				}
			})
		})
	})
}
