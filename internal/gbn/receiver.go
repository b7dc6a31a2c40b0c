package gbn

import (
	"sync"
	"time"

	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/metrics"
)

// ReceiverConfig carries the receive-side parameters.
type ReceiverConfig struct {
	SessionID string

	// AckLoss simulates the reverse (ACK) path. nil means no loss.
	AckLoss *LossSimulator

	// Deliver, when set, receives each in-order payload. Out-of-order payloads
	// are never delivered.
	Deliver func(Packet)

	Logger logger.Logger
}

// DeliveredMessage is one in-order payload kept by the receiver.
type DeliveredMessage struct {
	SeqNum     uint64    `json:"seq_num"`
	Data       []byte    `json:"data"`
	ReceivedAt time.Time `json:"received_at"`
}

// Receiver is the receive side of the Go-Back-N engine. It accepts only the
// next expected sequence number and acknowledges cumulatively. Nothing is
// buffered out of order: anything other than expectedSeq is unconditionally
// discarded, which is what distinguishes Go-Back-N from selective repeat.
type Receiver struct {
	cfg ReceiverConfig
	out AckWriter
	log logger.Logger

	mu          sync.Mutex
	expectedSeq uint64
	messages    []DeliveredMessage

	packetsReceived   uint64
	packetsInOrder    uint64
	packetsOutOfOrder uint64
	acksSent          uint64
	acksLost          uint64
}

// NewReceiver creates a receiver writing acknowledgments to out.
func NewReceiver(cfg ReceiverConfig, out AckWriter) *Receiver {
	if cfg.SessionID == "" {
		cfg.SessionID = "local"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNullLogger()
	}
	return &Receiver{
		cfg: cfg,
		out: out,
		log: cfg.Logger.WithField("component", "gbn_receiver"),
	}
}

// OnPacketReceived evaluates one inbound packet. The expected sequence number
// is accepted, delivered and acknowledged; everything else is discarded and the
// last correctly received packet is re-acknowledged, prompting the sender's
// Go-Back-N retransmission. Before the first in-order delivery there is nothing
// to re-acknowledge, so early stray packets produce no ACK at all.
func (r *Receiver) OnPacketReceived(pkt Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.packetsReceived++

	if pkt.SeqNum == r.expectedSeq {
		r.packetsInOrder++
		metrics.RecordPacketReceived(r.cfg.SessionID, true)

		r.messages = append(r.messages, DeliveredMessage{
			SeqNum:     pkt.SeqNum,
			Data:       pkt.Data,
			ReceivedAt: time.Now(),
		})
		r.expectedSeq++

		r.log.WithField("seq", pkt.SeqNum).Debug("Packet accepted in order")

		if r.cfg.Deliver != nil {
			r.cfg.Deliver(pkt)
		}

		r.emitAckLocked(pkt.SeqNum)
		return
	}

	r.packetsOutOfOrder++
	metrics.RecordPacketReceived(r.cfg.SessionID, false)

	if pkt.SeqNum < r.expectedSeq {
		r.log.WithFields(map[string]interface{}{
			"seq":      pkt.SeqNum,
			"expected": r.expectedSeq,
		}).Debug("Duplicate packet discarded")
	} else {
		r.log.WithFields(map[string]interface{}{
			"seq":      pkt.SeqNum,
			"expected": r.expectedSeq,
		}).Debug("Out-of-order packet discarded")
	}

	if r.expectedSeq > 0 {
		r.emitAckLocked(r.expectedSeq - 1)
	}
}

// emitAckLocked sends a cumulative ACK for ackNum, subject to reverse-path
// loss. A dropped ACK counts as lost, not sent.
func (r *Receiver) emitAckLocked(ackNum uint64) {
	if r.cfg.AckLoss.ShouldDrop() {
		r.acksLost++
		metrics.RecordAckSent(r.cfg.SessionID, true)
		r.log.WithField("ack_num", ackNum).Info("ACK lost in channel")
		return
	}

	ack := Ack{AckNum: ackNum, Timestamp: sendTime()}
	if err := r.out.WriteAck(ack); err != nil {
		r.log.WithError(err).WithField("ack_num", ackNum).Error("Failed to write ACK")
		return
	}

	r.acksSent++
	metrics.RecordAckSent(r.cfg.SessionID, false)
	r.log.WithField("ack_num", ackNum).Debug("ACK sent")
}

// ExpectedSeq returns the next sequence number the receiver will accept.
func (r *Receiver) ExpectedSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expectedSeq
}

// Messages returns a copy of the in-order delivered payloads.
func (r *Receiver) Messages() []DeliveredMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeliveredMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Stats returns a snapshot of the receiver's counters.
func (r *Receiver) Stats() ReceiverStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ReceiverStats{
		PacketsReceived:   r.packetsReceived,
		PacketsInOrder:    r.packetsInOrder,
		PacketsOutOfOrder: r.packetsOutOfOrder,
		AcksSent:          r.acksSent,
		AcksLost:          r.acksLost,
		ExpectedSeq:       r.expectedSeq,
	}
}
