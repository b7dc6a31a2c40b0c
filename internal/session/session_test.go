package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/gbn"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/transport"
)

func runPair(t *testing.T, cfg *config.ProtocolConfig, senderOpts []SenderOption, receiverOpts []ReceiverOption) (*SenderSession, *ReceiverSession) {
	t.Helper()
	log := logger.NewNullLogger()

	a, b := transport.NewPipe()
	t.Cleanup(func() { a.Close() })

	recv := NewReceiverSession(cfg, b, log, nil, receiverOpts...)
	require.NoError(t, recv.Start())
	t.Cleanup(func() { recv.Stop() })

	send := NewSenderSession(cfg, a, log, senderOpts...)
	require.NoError(t, send.Start())
	t.Cleanup(func() { send.Stop() })

	return send, recv
}

func TestSessionPair_ReliableDeliveryWithoutLoss(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize: 4,
		Timeout:    500 * time.Millisecond,
	}
	send, recv := runPair(t, cfg, nil, nil)

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, send.Send([]byte(fmt.Sprintf("message-%d", i))))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, send.Drain(ctx))

	waitFor(t, func() bool { return len(recv.Messages()) == n })

	msgs := recv.Messages()
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, uint64(i), m.SeqNum)
		assert.Equal(t, []byte(fmt.Sprintf("message-%d", i)), m.Data)
	}

	ss := send.Stats()
	assert.Equal(t, uint64(n), ss.PacketsSent)
	assert.Equal(t, uint64(0), ss.PacketsLost)
	assert.Equal(t, uint64(0), ss.Retransmissions)
	assert.Equal(t, uint64(0), ss.TimeoutsOccurred)
	assert.InDelta(t, 1.0, ss.Efficiency(), 0.0001)

	rs := recv.Stats()
	assert.Equal(t, uint64(n), rs.PacketsInOrder)
	assert.Equal(t, uint64(0), rs.PacketsOutOfOrder)
}

func TestSessionPair_RecoversFromScriptedLoss(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize: 3,
		Timeout:    150 * time.Millisecond,
	}
	// First transmissions of messages 1 and 2 die in the channel; everything
	// after survives, so one whole-window timeout recovers the session.
	loss := gbn.NewScriptedLossSimulator(false, true, true, false)
	send, recv := runPair(t, cfg, []SenderOption{WithLossSimulator(loss)}, nil)

	const n = 4
	for i := 0; i < n; i++ {
		require.NoError(t, send.Send([]byte(fmt.Sprintf("message-%d", i))))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, send.Drain(ctx))

	waitFor(t, func() bool { return len(recv.Messages()) == n })

	msgs := recv.Messages()
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, uint64(i), m.SeqNum)
	}

	ss := send.Stats()
	assert.Equal(t, uint64(7), ss.PacketsSent)
	assert.Equal(t, uint64(2), ss.PacketsLost)
	assert.Equal(t, uint64(1), ss.TimeoutsOccurred)
	assert.Equal(t, uint64(3), ss.Retransmissions)
	assert.Equal(t, uint64(4), ss.AcksReceived)
	assert.InDelta(t, 4.0/7.0, ss.Efficiency(), 0.0001)

	rs := recv.Stats()
	assert.Equal(t, uint64(5), rs.PacketsReceived)
	assert.Equal(t, uint64(4), rs.PacketsInOrder)
	assert.Equal(t, uint64(1), rs.PacketsOutOfOrder)
	assert.Equal(t, uint64(5), rs.AcksSent)
	assert.InDelta(t, 0.8, rs.AcceptanceRate(), 0.0001)
}

func TestSessionPair_AckLossRecoveredByTimeout(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize: 2,
		Timeout:    100 * time.Millisecond,
	}
	// The first acknowledgment dies on the reverse path. The receiver has
	// already accepted the packet, so the retransmission is a duplicate it
	// discards while re-acknowledging.
	ackLoss := gbn.NewScriptedLossSimulator(true)
	send, recv := runPair(t, cfg, nil, []ReceiverOption{WithAckLossSimulator(ackLoss)})

	require.NoError(t, send.Send([]byte("only")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, send.Drain(ctx))

	msgs := recv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("only"), msgs[0].Data)

	ss := send.Stats()
	assert.GreaterOrEqual(t, ss.TimeoutsOccurred, uint64(1))
	assert.GreaterOrEqual(t, ss.Retransmissions, uint64(1))

	rs := recv.Stats()
	assert.Equal(t, uint64(1), rs.AcksLost)
	assert.Equal(t, uint64(1), rs.PacketsInOrder)
}

func TestSenderSession_RetryLimitFailsSend(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize:      2,
		Timeout:         20 * time.Millisecond,
		LossProbability: 1.0,
		Seed:            1,
		MaxRetries:      2,
	}
	send, _ := runPair(t, cfg, nil, nil)

	require.NoError(t, send.Send([]byte("doomed")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := send.Drain(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "RETRY_EXHAUSTED")
	assert.Error(t, send.Err())
}

func TestSenderSession_DeadlineCancelsBlockedSend(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize:      1,
		Timeout:         time.Minute,
		LossProbability: 1.0,
		Seed:            1,
		Deadline:        100 * time.Millisecond,
	}
	send, _ := runPair(t, cfg, nil, nil)

	// Fills the single-slot window; nothing ever gets through.
	require.NoError(t, send.Send([]byte("first")))

	start := time.Now()
	err := send.Send([]byte("second"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSessionPair_PacingLimitsSendRate(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize:       8,
		Timeout:          time.Second,
		PacketsPerSecond: 100,
	}
	send, _ := runPair(t, cfg, nil, nil)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, send.Send([]byte("paced")))
	}
	// Five sends at 100 packets per second cost at least 40ms after the
	// initial burst token.
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestSessionPair_MalformedDatagramsAreDiscarded(t *testing.T) {
	cfg := &config.ProtocolConfig{
		WindowSize: 4,
		Timeout:    500 * time.Millisecond,
	}
	log := logger.NewNullLogger()

	a, b := transport.NewPipe()
	t.Cleanup(func() { a.Close() })

	recv := NewReceiverSession(cfg, b, log, nil)
	require.NoError(t, recv.Start())
	t.Cleanup(func() { recv.Stop() })

	// Garbage straight onto the receiver's wire.
	require.NoError(t, a.Send(context.Background(), []byte("not json at all")))

	send := NewSenderSession(cfg, a, log)
	require.NoError(t, send.Start())
	t.Cleanup(func() { send.Stop() })

	require.NoError(t, send.Send([]byte("real")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, send.Drain(ctx))

	waitFor(t, func() bool { return len(recv.Messages()) == 1 })
	assert.Equal(t, []byte("real"), recv.Messages()[0].Data)
}

func TestSession_StartTwiceFails(t *testing.T) {
	cfg := &config.ProtocolConfig{WindowSize: 1, Timeout: time.Second}
	send, recv := runPair(t, cfg, nil, nil)

	assert.Error(t, send.Start())
	assert.Error(t, recv.Start())
}

func TestSession_StopIdempotent(t *testing.T) {
	cfg := &config.ProtocolConfig{WindowSize: 1, Timeout: time.Second}
	send, recv := runPair(t, cfg, nil, nil)

	require.NoError(t, send.Stop())
	require.NoError(t, send.Stop())
	require.NoError(t, recv.Stop())
	require.NoError(t, recv.Stop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
