package simexam

import (
	"context"
	"fmt"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
)

// Run executes one simulated exam session against a running agent.
func Run(ctx context.Context, config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	stats := &Stats{StartTime: time.Now()}

	log := logger.Get().Named("simexam")
	log.Info(ctx, "starting simulated exam",
		logger.String("baseURL", config.BaseURL),
		logger.String("scenario", config.Scenario),
		logger.String("duration", config.Duration.String()),
		logger.String("frameInterval", config.FrameInterval.String()))

	script, err := buildScenario(config.Scenario, config.Duration)
	if err != nil {
		return err
	}

	client := newAgentClient(config.BaseURL, config.Timeout)

	// Step 1: check the agent is up.
	if err := client.health(ctx); err != nil {
		return fmt.Errorf("agent health check failed: %w", err)
	}

	// Step 2: connect the bridge and push a first frame so the verify
	// step has something to sample.
	if err := client.connect(ctx); err != nil {
		return err
	}
	defer client.closeBridge()

	frames := &frameGenerator{}
	if err := pushFrame(client, frames, stats); err != nil {
		return err
	}

	// Step 3: identity check.
	if err := client.verify(ctx); err != nil {
		return fmt.Errorf("identity verification failed: %w", err)
	}
	log.Info(ctx, "identity verified")

	// Step 4: enter fullscreen and start the exam.
	if err := client.sendBrowserEvent("fullscreen_entered"); err != nil {
		return fmt.Errorf("failed to report fullscreen: %w", err)
	}
	if err := client.activate(ctx); err != nil {
		return fmt.Errorf("exam activation failed: %w", err)
	}
	log.Info(ctx, "exam started")

	// Step 5: play the scenario until the clock runs out or the agent
	// terminates the session.
	terminated := playScenario(ctx, config, client, script, frames, stats, log)

	// Step 6: submit unless the agent already ended the exam.
	if !terminated {
		if err := client.submit(ctx, "simulated exam finished"); err != nil {
			log.Warn(ctx, "submit failed", logger.Error(err))
		}
	}

	// Step 7: collect the final state.
	if st, err := client.status(ctx); err == nil {
		stats.FinalPhase = st.Phase
	}
	if n, err := client.alerts(ctx); err == nil {
		stats.AlertCount = n
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, log)

	return nil
}

// playScenario streams frames and scripted incidents. Returns true if
// the agent terminated the session before the duration elapsed.
func playScenario(ctx context.Context, config *Config, client *agentClient, script *scenario, frames *frameGenerator, stats *Stats, log logger.Logger) bool {
	ticker := time.NewTicker(config.FrameInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(config.Duration)
	defer deadline.Stop()

	start := time.Now()
	cameraOn := true

	for {
		select {
		case <-ctx.Done():
			return false

		case <-deadline.C:
			return false

		case msg, ok := <-client.push:
			if !ok {
				return false
			}
			switch msg.Type {
			case "warning":
				stats.WarningsReceived++
				log.Warn(ctx, "warning received",
					logger.String("category", msg.Category),
					logger.Int("count", msg.Count),
					logger.Int("limit", msg.Limit))
			case "terminated":
				stats.Terminated = true
				stats.TerminateReason = msg.Reason
				log.Warn(ctx, "exam terminated by agent", logger.String("reason", msg.Reason))
				return true
			}

		case <-ticker.C:
			elapsed := time.Since(start)
			for inc := script.nextIncident(elapsed, stats.IncidentsPlayed); inc != nil; inc = script.nextIncident(elapsed, stats.IncidentsPlayed) {
				stats.IncidentsPlayed++
				switch inc.kind {
				case "camera_off":
					cameraOn = false
				case "camera_on":
					cameraOn = true
				default:
					if err := client.sendBrowserEvent(inc.kind); err != nil {
						log.Warn(ctx, "failed to send browser event", logger.Error(err))
					}
				}
				if config.Verbose {
					log.Info(ctx, "incident played", logger.String("kind", inc.kind))
				}
			}

			if cameraOn {
				if err := pushFrame(client, frames, stats); err != nil {
					log.Warn(ctx, "failed to push frame", logger.Error(err))
				}
			}
		}
	}
}

// pushFrame generates and sends one synthetic camera frame.
func pushFrame(client *agentClient, frames *frameGenerator, stats *Stats) error {
	jpeg, err := frames.next()
	if err != nil {
		return err
	}
	if err := client.sendFrame(jpeg); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	stats.FramesSent++
	return nil
}

// displayFinalStats prints the run outcome.
func displayFinalStats(ctx context.Context, stats *Stats, log logger.Logger) {
	log.Info(ctx, "simulated exam finished",
		logger.Int("framesSent", stats.FramesSent),
		logger.Int("incidentsPlayed", stats.IncidentsPlayed),
		logger.Int("warningsReceived", stats.WarningsReceived),
		logger.Bool("terminated", stats.Terminated),
		logger.String("terminateReason", stats.TerminateReason),
		logger.String("finalPhase", stats.FinalPhase),
		logger.Int("alertCount", stats.AlertCount),
		logger.String("duration", stats.Duration.String()))
}
