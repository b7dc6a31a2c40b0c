package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/arq/internal/logger"
)

func newRunner() *Runner {
	return NewRunner(logger.NewNullLogger())
}

func TestRun_OptimalScenario(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := newRunner().Run(ctx, OptimalScenario())
	require.NoError(t, err)

	assert.Len(t, res.Delivered, 7)
	assert.Equal(t, uint64(7), res.Sender.PacketsSent)
	assert.Equal(t, uint64(0), res.Sender.Retransmissions)
	assert.Equal(t, uint64(0), res.Sender.TimeoutsOccurred)
	assert.InDelta(t, 1.0, res.ProtocolEfficiency, 0.0001)
	assert.InDelta(t, 0.0, res.EffectiveLossRate, 0.0001)
	assert.Greater(t, res.Throughput, 0.0)

	for i, msg := range res.Delivered {
		assert.Equal(t, uint64(i), msg.SeqNum)
	}
}

func TestRun_LossyScenarioStillDeliversEverything(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sc := Scenario{
		Name:            "lossy",
		Messages:        numberedMessages(6),
		WindowSize:      3,
		Timeout:         100 * time.Millisecond,
		LossProbability: 0.3,
		Seed:            11,
	}
	res, err := newRunner().Run(ctx, sc)
	require.NoError(t, err)

	require.Len(t, res.Delivered, 6)
	for i, msg := range res.Delivered {
		assert.Equal(t, uint64(i), msg.SeqNum)
	}
	assert.Greater(t, res.Sender.PacketsSent, uint64(6))
	assert.Greater(t, res.Sender.TimeoutsOccurred, uint64(0))
	assert.Less(t, res.ProtocolEfficiency, 1.0)
}

func TestRun_SeededScenarioIsReproducible(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sc := Scenario{
		Name:            "seeded",
		Messages:        numberedMessages(5),
		WindowSize:      2,
		Timeout:         80 * time.Millisecond,
		LossProbability: 0.25,
		Seed:            99,
	}

	first, err := newRunner().Run(ctx, sc)
	require.NoError(t, err)
	second, err := newRunner().Run(ctx, sc)
	require.NoError(t, err)

	assert.Equal(t, first.Sender.PacketsLost, second.Sender.PacketsLost)
}

func TestRun_RejectsEmptyScenario(t *testing.T) {
	_, err := newRunner().Run(context.Background(), Scenario{Name: "empty", WindowSize: 1})
	assert.Error(t, err)

	_, err = newRunner().Run(context.Background(), Scenario{Name: "no-window", Messages: []string{"x"}})
	assert.Error(t, err)
}

func TestRun_RetryLimitSurfacesFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sc := Scenario{
		Name:            "dead-channel",
		Messages:        numberedMessages(3),
		WindowSize:      2,
		Timeout:         20 * time.Millisecond,
		LossProbability: 1.0,
		Seed:            1,
		MaxRetries:      2,
	}
	_, err := newRunner().Run(ctx, sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_EXHAUSTED")
}

func TestRenderResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := newRunner().Run(ctx, OptimalScenario())
	require.NoError(t, err)

	out := RenderResult(res)
	assert.Contains(t, out, "optimal")
	assert.Contains(t, out, "Packets sent")
	assert.Contains(t, out, "Protocol efficiency")
}

func TestRenderComparison(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	optimal, err := newRunner().Run(ctx, OptimalScenario())
	require.NoError(t, err)

	out := RenderComparison([]*Result{optimal, optimal})
	assert.Contains(t, out, "Comparative analysis")
	assert.Contains(t, out, "Throughput")

	assert.Empty(t, RenderComparison(nil))
}

func TestWindowSweepScenarios(t *testing.T) {
	scenarios := WindowSweepScenarios()
	require.Len(t, scenarios, 4)
	assert.Equal(t, 1, scenarios[0].WindowSize)
	assert.Equal(t, 8, scenarios[3].WindowSize)
	for _, sc := range scenarios {
		assert.Len(t, sc.Messages, 12)
		assert.NotZero(t, sc.Seed)
	}
}
