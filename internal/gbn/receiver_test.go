package gbn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureAcks collects everything the receiver puts on the channel.
type captureAcks struct {
	mu   sync.Mutex
	acks []Ack
}

func (c *captureAcks) WriteAck(a Ack) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks = append(c.acks, a)
	return nil
}

func (c *captureAcks) nums() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(c.acks))
	for i, a := range c.acks {
		out[i] = a.AckNum
	}
	return out
}

func newTestReceiver(cfg ReceiverConfig) (*Receiver, *captureAcks) {
	out := &captureAcks{}
	return NewReceiver(cfg, out), out
}

func pkt(seq uint64) Packet {
	return Packet{SeqNum: seq, Data: []byte("payload"), Timestamp: sendTime()}
}

func TestReceiver_InOrderDelivery(t *testing.T) {
	r, out := newTestReceiver(ReceiverConfig{})

	r.OnPacketReceived(pkt(0))
	r.OnPacketReceived(pkt(1))
	r.OnPacketReceived(pkt(2))

	assert.Equal(t, []uint64{0, 1, 2}, out.nums())
	assert.Equal(t, uint64(3), r.ExpectedSeq())

	stats := r.Stats()
	assert.Equal(t, uint64(3), stats.PacketsReceived)
	assert.Equal(t, uint64(3), stats.PacketsInOrder)
	assert.Equal(t, uint64(0), stats.PacketsOutOfOrder)
	assert.Equal(t, uint64(3), stats.AcksSent)
	assert.Equal(t, 1.0, stats.AcceptanceRate())
	assert.Len(t, r.Messages(), 3)
}

func TestReceiver_FuturePacketDiscarded(t *testing.T) {
	r, out := newTestReceiver(ReceiverConfig{})

	r.OnPacketReceived(pkt(0))
	r.OnPacketReceived(pkt(2))

	// The gap packet is discarded and the last in-order packet re-acknowledged.
	assert.Equal(t, []uint64{0, 0}, out.nums())
	assert.Equal(t, uint64(1), r.ExpectedSeq())
	assert.Len(t, r.Messages(), 1)

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.PacketsOutOfOrder)
}

func TestReceiver_StaleDuplicateDiscarded(t *testing.T) {
	r, out := newTestReceiver(ReceiverConfig{})

	r.OnPacketReceived(pkt(0))
	r.OnPacketReceived(pkt(1))
	r.OnPacketReceived(pkt(0)) // duplicate of retired packet

	assert.Equal(t, []uint64{0, 1, 1}, out.nums())
	assert.Equal(t, uint64(2), r.ExpectedSeq())
	assert.Len(t, r.Messages(), 2)
}

func TestReceiver_NoAckBeforeFirstDelivery(t *testing.T) {
	r, out := newTestReceiver(ReceiverConfig{})

	// Nothing has been accepted yet, so there is no previous packet to
	// re-acknowledge.
	r.OnPacketReceived(pkt(3))

	assert.Empty(t, out.nums())
	assert.Equal(t, uint64(0), r.ExpectedSeq())

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.PacketsReceived)
	assert.Equal(t, uint64(1), stats.PacketsOutOfOrder)
	assert.Equal(t, uint64(0), stats.AcksSent)
}

func TestReceiver_AckLoss(t *testing.T) {
	r, out := newTestReceiver(ReceiverConfig{
		AckLoss: NewScriptedLossSimulator(true, false),
	})

	r.OnPacketReceived(pkt(0))
	r.OnPacketReceived(pkt(1))

	// The first ACK died in the channel; delivery itself is unaffected.
	assert.Equal(t, []uint64{1}, out.nums())
	assert.Len(t, r.Messages(), 2)

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.AcksSent)
	assert.Equal(t, uint64(1), stats.AcksLost)
}

func TestReceiver_DeliverCallback(t *testing.T) {
	var delivered []uint64
	r, _ := newTestReceiver(ReceiverConfig{
		Deliver: func(p Packet) { delivered = append(delivered, p.SeqNum) },
	})

	r.OnPacketReceived(pkt(0))
	r.OnPacketReceived(pkt(2)) // discarded, never delivered
	r.OnPacketReceived(pkt(1))

	assert.Equal(t, []uint64{0, 1}, delivered)
}

func TestReceiver_MessagesReturnsCopy(t *testing.T) {
	r, _ := newTestReceiver(ReceiverConfig{})
	r.OnPacketReceived(pkt(0))

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	msgs[0].SeqNum = 99

	assert.Equal(t, uint64(0), r.Messages()[0].SeqNum)
}

func TestReceiverStats_AcceptanceRate(t *testing.T) {
	stats := ReceiverStats{PacketsReceived: 5, PacketsInOrder: 4}
	assert.InDelta(t, 0.8, stats.AcceptanceRate(), 0.0001)

	assert.Equal(t, 0.0, ReceiverStats{}.AcceptanceRate())
}
