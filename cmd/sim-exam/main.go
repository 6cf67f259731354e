package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/simexam"
)

// Default configuration constants.
const (
	defaultDuration      = 2 * time.Minute
	defaultFrameInterval = 1 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the agent")
		scenario      = flag.String("scenario", simexam.ScenarioClean, "Behavior script: clean, tab-switcher, fullscreen-flaky, walkaway")
		duration      = flag.Duration("duration", defaultDuration, "Length of the simulated exam")
		frameInterval = flag.Duration("frame-interval", defaultFrameInterval, "Camera frame cadence")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile       = flag.String("log", "", "Log file for run output (default: sim_exam_TIMESTAMP.log)")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
		help          = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simexam.ShowHelp()
		return
	}

	if err := simexam.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simexam.Config{
		BaseURL:       *baseURL,
		Scenario:      *scenario,
		Duration:      *duration,
		FrameInterval: *frameInterval,
		Timeout:       *timeout,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if err := simexam.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulated exam failed: " + err.Error() + "\n")
		return
	}
}
