// Package site serves the embedded exam panel, the browser page the
// student takes the exam in. The page owns the camera: it captures
// frames, pushes them over the bridge, and reports visibility and
// fullscreen changes.
package site

import (
	"context"
	"errors"
	"net/http"
)

// ErrServe indicates the exam panel could not be served.
var ErrServe = errors.New("exam panel serve failed")

// Register attaches the embedded exam panel routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("/panel/", http.StripPrefix("/panel/", files))
	mux.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))
}
