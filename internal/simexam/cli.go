package simexam

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sim_exam_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the sim-exam tool.
func ShowHelp() {
	os.Stdout.WriteString(`Proctoring Agent Exam Simulator
===============================

Drives a complete simulated exam session against a running agent:
identity verification, activation, synthetic camera frames, scripted
incidents, and submission.

Usage:
  go run cmd/sim-exam/main.go [options]

Options:
  -url string
        Base URL of the agent (default "http://localhost:9080")
  -scenario string
        Behavior script: clean, tab-switcher, fullscreen-flaky,
        walkaway (default "clean")
  -duration duration
        Length of the simulated exam (default 2m)
  -frame-interval duration
        Camera frame cadence (default 1s)
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Log file for run output (default: sim_exam_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Clean run against a local agent
  go run cmd/sim-exam/main.go

  # Student who keeps leaving fullscreen
  go run cmd/sim-exam/main.go -scenario fullscreen-flaky -duration 1m

  # Camera goes dark mid-exam
  go run cmd/sim-exam/main.go -scenario walkaway -verbose
`)
}
