package simexam

import (
	"fmt"
	"time"
)

// Config holds configuration for one simulated exam run.
type Config struct {
	BaseURL       string        // Base URL of the agent
	Scenario      string        // Named behavior script to run
	Duration      time.Duration // How long the simulated exam lasts
	FrameInterval time.Duration // Camera frame cadence
	Timeout       time.Duration // HTTP request timeout
	LogFile       string        // Log file for run output
	Verbose       bool          // Enable verbose logging
}

// Validate rejects configurations the runner cannot execute.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive")
	}
	if _, err := buildScenario(c.Scenario, c.Duration); err != nil {
		return err
	}
	return nil
}

// Stats holds the outcome of one simulated exam.
type Stats struct {
	FramesSent       int
	IncidentsPlayed  int
	WarningsReceived int
	Terminated       bool
	TerminateReason  string
	FinalPhase       string
	AlertCount       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
