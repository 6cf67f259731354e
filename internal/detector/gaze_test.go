package detector_test

import (
	"context"
	"testing"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/detector"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGazeDetector(t *testing.T) {
	Convey("Given a gaze detector with a 10s away threshold at 2s cadence", t, func() {
		ctx := context.Background()
		clock := newTestClock()
		src := newTestSource(clock)
		sink := &fakeSink{}
		mesh := &fakeMesh{sets: []model.LandmarkSet{lookingLeft()}}

		g := detector.NewGaze(src, mesh, sink,
			detector.WithGazeAwayThreshold(10*time.Second),
			detector.WithGazeClock(clock.now),
		)

		Convey("When the gaze stays LEFT for six consecutive ticks", func() {
			var firedAtTick int
			for tick := 1; tick <= 6; tick++ {
				So(g.Tick(ctx), ShouldBeNil)
				if firedAtTick == 0 && sink.count(model.CategorySuspiciousEyeMovement) > 0 {
					firedAtTick = tick
				}
				clock.advance(2 * time.Second)
			}

			Convey("Then the first violation should fire on tick 6, not earlier", func() {
				So(firedAtTick, ShouldEqual, 6)
				So(sink.count(model.CategorySuspiciousEyeMovement), ShouldEqual, 1)
			})
		})

		Convey("When the gaze returns to center before the threshold", func() {
			for tick := 0; tick < 4; tick++ {
				So(g.Tick(ctx), ShouldBeNil)
				clock.advance(2 * time.Second)
			}
			mesh.sets = []model.LandmarkSet{centeredFace()}
			So(g.Tick(ctx), ShouldBeNil)
			clock.advance(2 * time.Second)

			Convey("Then the excursion resets and no event fires", func() {
				So(sink.count(model.CategorySuspiciousEyeMovement), ShouldEqual, 0)

				// A fresh excursion must again be sustained for the full
				// threshold before firing.
				mesh.sets = []model.LandmarkSet{lookingLeft()}
				for tick := 0; tick < 5; tick++ {
					So(g.Tick(ctx), ShouldBeNil)
					clock.advance(2 * time.Second)
				}
				So(sink.count(model.CategorySuspiciousEyeMovement), ShouldEqual, 0)
			})
		})

		Convey("When the iris drops below the eye-corner midline", func() {
			down := centeredFace()
			down.Points[detector.LandmarkLeftIris].Y = 108
			down.Points[detector.LandmarkRightIris].Y = 108
			mesh.sets = []model.LandmarkSet{down}

			for tick := 0; tick < 7; tick++ {
				So(g.Tick(ctx), ShouldBeNil)
				clock.advance(2 * time.Second)
			}

			Convey("Then the sustained DOWN gaze should fire once", func() {
				So(sink.count(model.CategorySuspiciousEyeMovement), ShouldEqual, 1)
			})
		})

		Convey("When no face is visible", func() {
			mesh.sets = nil
			So(g.Tick(ctx), ShouldBeNil)

			Convey("Then the tick should be skipped silently", func() {
				So(sink.reports, ShouldBeEmpty)
			})
		})
	})
}
