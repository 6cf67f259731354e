package simexam

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// Scenario names accepted by the runner.
const (
	ScenarioClean           = "clean"
	ScenarioTabSwitcher     = "tab-switcher"
	ScenarioFullscreenFlaky = "fullscreen-flaky"
	ScenarioWalkaway        = "walkaway"
)

// Synthetic frame dimensions.
const (
	frameWidth  = 320
	frameHeight = 240
	jpegQuality = 70
)

// incident is one scripted action at an offset into the exam.
type incident struct {
	at   time.Duration
	kind string // browser event kind, or "camera_off" / "camera_on"
}

// scenario is a behavior script: browser events and camera outages
// played against a running exam.
type scenario struct {
	name      string
	incidents []incident
}

// buildScenario expands a scenario name into its script. Incidents are
// spread over the exam duration so short and long runs exercise the
// same behavior.
func buildScenario(name string, duration time.Duration) (*scenario, error) {
	switch name {
	case ScenarioClean, "":
		return &scenario{name: ScenarioClean}, nil

	case ScenarioTabSwitcher:
		// Three hide/show pairs, evenly spaced.
		s := &scenario{name: name}
		for i := 1; i <= 3; i++ {
			at := duration * time.Duration(i) / 4
			s.incidents = append(s.incidents,
				incident{at: at, kind: "visibility_hidden"},
				incident{at: at + duration/20, kind: "visibility_visible"},
			)
		}
		return s, nil

	case ScenarioFullscreenFlaky:
		// Three exits with re-entries; the third exit crosses the
		// default warning limit and should end the exam.
		s := &scenario{name: name}
		for i := 1; i <= 3; i++ {
			at := duration * time.Duration(i) / 4
			s.incidents = append(s.incidents,
				incident{at: at, kind: "fullscreen_exited"},
				incident{at: at + duration/20, kind: "fullscreen_entered"},
			)
		}
		return s, nil

	case ScenarioWalkaway:
		// Camera goes dark a third of the way in and never comes back.
		return &scenario{
			name:      name,
			incidents: []incident{{at: duration / 3, kind: "camera_off"}},
		}, nil

	default:
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
}

// nextIncident returns the first incident due at or before elapsed that
// has not been played yet, or nil.
func (s *scenario) nextIncident(elapsed time.Duration, played int) *incident {
	if played >= len(s.incidents) {
		return nil
	}
	if s.incidents[played].at <= elapsed {
		return &s.incidents[played]
	}
	return nil
}

// frameGenerator produces synthetic camera frames. Each frame is a
// gray image with a square that drifts between frames, so consecutive
// JPEGs differ the way a live camera's would.
type frameGenerator struct {
	tick int
}

func (g *frameGenerator) next() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, frameWidth, frameHeight))
	for i := range img.Pix {
		img.Pix[i] = 0x60
	}

	// Drifting square stands in for the moving subject.
	x := (g.tick * 7) % (frameWidth - 40)
	y := (g.tick * 3) % (frameHeight - 40)
	for dy := 0; dy < 40; dy++ {
		for dx := 0; dx < 40; dx++ {
			img.SetGray(x+dx, y+dy, color.Gray{Y: 0xc0})
		}
	}
	g.tick++

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
