package browser_test

import (
	"context"
	"sync"
	"testing"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/browser"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recordingSink struct {
	mu         sync.Mutex
	categories []model.ViolationCategory
}

func (s *recordingSink) Report(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, category)
	return false
}

func (s *recordingSink) Terminate(ctx context.Context, cause model.ViolationCategory, message string) {
}

func (s *recordingSink) count(category model.ViolationCategory) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.categories {
		if c == category {
			n++
		}
	}
	return n
}

func TestMonitor(t *testing.T) {
	Convey("Given a browser monitor", t, func() {
		ctx := context.Background()
		sink := &recordingSink{}
		m := browser.NewMonitor(sink)

		Convey("When the page enters fullscreen", func() {
			m.Apply(ctx, browser.Event{Kind: browser.EventFullscreenEntered})

			Convey("Then the state is fullscreen and unblocked", func() {
				So(m.Fullscreen(), ShouldBeTrue)
				So(m.Blocked(), ShouldBeFalse)
				So(sink.categories, ShouldBeEmpty)
			})

			Convey("And leaving fullscreen warns and blocks the UI", func() {
				m.Apply(ctx, browser.Event{Kind: browser.EventFullscreenExited})

				So(m.Fullscreen(), ShouldBeFalse)
				So(m.Blocked(), ShouldBeTrue)
				So(sink.count(model.CategoryFullscreenExited), ShouldEqual, 1)

				Convey("And re-entering fullscreen clears the block", func() {
					m.Apply(ctx, browser.Event{Kind: browser.EventFullscreenEntered})
					So(m.Blocked(), ShouldBeFalse)
					So(m.Fullscreen(), ShouldBeTrue)
				})
			})
		})

		Convey("When the page goes hidden", func() {
			m.Apply(ctx, browser.Event{Kind: browser.EventVisibilityHidden})

			Convey("Then a tab switch is reported", func() {
				So(sink.count(model.CategoryTabSwitch), ShouldEqual, 1)
			})

			Convey("And coming back does not report anything", func() {
				m.Apply(ctx, browser.Event{Kind: browser.EventVisibilityVisible})
				So(sink.count(model.CategoryTabSwitch), ShouldEqual, 1)
				So(len(sink.categories), ShouldEqual, 1)
			})
		})

		Convey("When every exit is a fresh excursion", func() {
			for i := 0; i < 3; i++ {
				m.Apply(ctx, browser.Event{Kind: browser.EventFullscreenEntered})
				m.Apply(ctx, browser.Event{Kind: browser.EventFullscreenExited})
			}

			Convey("Then each exit warns once", func() {
				So(sink.count(model.CategoryFullscreenExited), ShouldEqual, 3)
			})
		})

		Convey("When an unknown event arrives", func() {
			m.Apply(ctx, browser.Event{Kind: "coffee_break"})

			Convey("Then it is ignored", func() {
				So(sink.categories, ShouldBeEmpty)
				So(m.Blocked(), ShouldBeFalse)
			})
		})
	})
}
