package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPanelHandler(t *testing.T) {
	Convey("Given the exam panel handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()

		Convey("When registering the panel routes", func() {
			Register(ctx, mux)

			Convey("Then it should redirect /panel to /panel/", func() {
				req := httptest.NewRequest("GET", "/panel", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusMovedPermanently)
				So(w.Header().Get("Location"), ShouldEqual, "/panel/")
			})

			Convey("And it should serve the panel index at /panel/", func() {
				req := httptest.NewRequest("GET", "/panel/", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "Exam Panel")
			})

			Convey("And it should not handle the root / route", func() {
				req := httptest.NewRequest("GET", "/", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestPanelHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		ctx := context.Background()

		Convey("When registering the panel routes", func() {
			Convey("Then it should panic", func() {
				So(func() {
					Register(ctx, nil)
				}, ShouldPanic)
			})
		})
	})
}
