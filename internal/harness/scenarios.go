package harness

import (
	"fmt"
	"time"
)

// OptimalScenario exercises the protocol on a clean channel: no loss on either
// path and a conservative timeout that should never fire.
func OptimalScenario() Scenario {
	return Scenario{
		Name:       "optimal",
		Messages:   numberedMessages(7),
		WindowSize: 4,
		Timeout:    2 * time.Second,
	}
}

// RealisticScenario exercises the protocol under moderate loss on both paths
// with a tighter timeout.
func RealisticScenario() Scenario {
	return Scenario{
		Name:               "realistic",
		Messages:           numberedMessages(10),
		WindowSize:         4,
		Timeout:            300 * time.Millisecond,
		LossProbability:    0.25,
		AckLossProbability: 0.15,
		Seed:               42,
	}
}

// WindowSweepScenarios varies the window size over the same lossy channel so
// the reports show how window sizing changes throughput and overhead.
func WindowSweepScenarios() []Scenario {
	sizes := []int{1, 2, 4, 8}
	scenarios := make([]Scenario, 0, len(sizes))
	for _, size := range sizes {
		scenarios = append(scenarios, Scenario{
			Name:            fmt.Sprintf("window-%d", size),
			Messages:        numberedMessages(12),
			WindowSize:      size,
			Timeout:         200 * time.Millisecond,
			LossProbability: 0.2,
			Seed:            7,
		})
	}
	return scenarios
}

func numberedMessages(n int) []string {
	messages := make([]string, n)
	for i := range messages {
		messages[i] = fmt.Sprintf("MSG-%03d: payload %d", i+1, i+1)
	}
	return messages
}
