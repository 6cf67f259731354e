// Package geometry contains pure landmark geometry used by the detectors.
//
// All functions are deterministic and side-effect free so the detector logic
// can be tested without a real camera or model.
package geometry

import (
	"math"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
)

// Distance returns the 2-D Euclidean distance between two landmarks.
func Distance(a, b model.Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// EyeAspectRatio computes the EAR for one eye: vertical eyelid openness over
// horizontal eye width. Values near zero indicate a closed eye.
func EyeAspectRatio(top, bottom, inner, outer model.Landmark) float64 {
	width := Distance(inner, outer)
	if width == 0 {
		return 0
	}
	return Distance(top, bottom) / width
}

// HorizontalIrisRatio returns the position of the iris between the eye
// corners as a ratio in [0,1]: 0 at the inner corner, 1 at the outer.
// Values outside the center band indicate the eye is looking sideways.
func HorizontalIrisRatio(iris, inner, outer model.Landmark) float64 {
	span := outer.X - inner.X
	if span == 0 {
		return 0.5
	}
	return (iris.X - inner.X) / span
}

// VerticalIrisOffset returns the signed vertical offset of the iris from the
// eye-corner midline, in the same normalized units as the landmarks.
// Negative values mean the iris sits above the midline (looking up).
func VerticalIrisOffset(iris, inner, outer model.Landmark) float64 {
	mid := (inner.Y + outer.Y) / 2
	return iris.Y - mid
}

// CentroidShift returns the distance between the centers of two face
// bounding boxes, used as the liveness movement signal.
func CentroidShift(prev, cur model.BoundingBox) float64 {
	px, py := prev.Center()
	cx, cy := cur.Center()
	dx := cx - px
	dy := cy - py
	return math.Sqrt(dx*dx + dy*dy)
}

// DepthVariance returns the variance of the Z coordinate across the given
// landmarks. A geometrically flat surface (photo, screen) produces a
// variance near zero.
func DepthVariance(points []model.Landmark) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Z
	}
	mean := sum / float64(len(points))

	var variance float64
	for _, p := range points {
		d := p.Z - mean
		variance += d * d
	}
	return variance / float64(len(points))
}
