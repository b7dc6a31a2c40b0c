package gbn

import (
	"sync"
	"time"

	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/metrics"
)

// SenderConfig carries the transmit-side protocol parameters. The engine
// consumes them; it does not own configuration.
type SenderConfig struct {
	SessionID  string
	WindowSize int
	Timeout    time.Duration

	// MaxRetries bounds consecutive timeouts without window progress.
	// 0 keeps the documented default: retransmit without bound.
	MaxRetries int

	// Loss simulates the forward (packet) path. nil means no loss.
	Loss *LossSimulator

	Logger logger.Logger

	// OnAdvance, when set, is notified after every base advance and after a
	// retry-limit failure. Sessions use it to release Send backpressure.
	OnAdvance func()
}

// Sender is the transmit side of the Go-Back-N engine. It owns the sliding
// window, assigns sequence numbers, manages the single retransmission timer
// bound to the oldest unacknowledged packet, and retransmits the whole window
// on timeout.
//
// Two goroutines share a Sender in normal operation: the sending goroutine and
// the ACK listener. The timer fires on a third. One mutex serializes all of
// them; base, nextSeq and the timer are never updated independently.
type Sender struct {
	cfg SenderConfig
	out PacketWriter
	log logger.Logger

	mu      sync.Mutex
	base    uint64
	nextSeq uint64
	window  map[uint64]Packet
	timer   *Timer

	packetsSent      uint64
	packetsLost      uint64
	retransmissions  uint64
	acksReceived     uint64
	timeoutsOccurred uint64

	consecutiveTimeouts int
	failure             error
	closed              bool
}

// NewSender creates a sender writing outbound packets to out.
func NewSender(cfg SenderConfig, out PacketWriter) *Sender {
	if cfg.SessionID == "" {
		cfg.SessionID = "local"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNullLogger()
	}
	return &Sender{
		cfg:    cfg,
		out:    out,
		log:    cfg.Logger.WithField("component", "gbn_sender"),
		window: make(map[uint64]Packet),
		timer:  NewTimer(),
	}
}

// Send assigns the next sequence number to data and transmits it. It fails
// with a WINDOW_FULL error when the window has no capacity; the caller must
// wait for an acknowledgment and retry.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return errors.NewInternalError("sender is closed")
	}
	if s.failure != nil {
		err := s.failure
		s.mu.Unlock()
		return err
	}
	if s.nextSeq-s.base >= uint64(s.cfg.WindowSize) {
		err := errors.NewWindowFullError(s.base, s.nextSeq, s.cfg.WindowSize)
		s.mu.Unlock()
		return err
	}

	pkt := Packet{SeqNum: s.nextSeq, Data: data, Timestamp: sendTime()}
	wasIdle := s.base == s.nextSeq
	s.window[pkt.SeqNum] = pkt
	s.nextSeq++

	s.transmitLocked(pkt, false)
	if wasIdle {
		s.timer.Start(s.cfg.Timeout, s.onTimeout)
	}
	metrics.UpdateWindow(s.cfg.SessionID, s.base, s.nextSeq)

	s.mu.Unlock()
	return nil
}

// OnAckReceived applies a cumulative acknowledgment. An ACK for at least the
// oldest outstanding packet advances the base past it and retires everything
// below; the timer stops when the window empties and rearms for the new base
// otherwise. Stale ACKs (ack_num below base) are ignored with no state change.
func (s *Sender) OnAckReceived(ack Ack) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return
	}
	if ack.AckNum < s.base {
		s.log.WithFields(map[string]interface{}{
			"ack_num": ack.AckNum,
			"base":    s.base,
		}).Debug("Stale ACK ignored")
		s.mu.Unlock()
		return
	}

	s.acksReceived++
	metrics.RecordAckReceived(s.cfg.SessionID)

	for seq := s.base; seq <= ack.AckNum; seq++ {
		delete(s.window, seq)
	}
	s.base = ack.AckNum + 1
	s.consecutiveTimeouts = 0

	if s.base == s.nextSeq {
		s.timer.Stop()
	} else {
		s.timer.Start(s.cfg.Timeout, s.onTimeout)
	}
	metrics.UpdateWindow(s.cfg.SessionID, s.base, s.nextSeq)

	s.log.WithFields(map[string]interface{}{
		"ack_num": ack.AckNum,
		"base":    s.base,
	}).Debug("Window advanced")

	notify := s.cfg.OnAdvance
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// onTimeout is the timer callback: retransmit the entire unacknowledged window
// in ascending sequence order and rearm. Timeout is the sole recovery path;
// there is no selective or negative ACK.
func (s *Sender) onTimeout() {
	s.mu.Lock()

	if s.closed || s.base == s.nextSeq {
		// Raced with Close or with the ACK that emptied the window.
		s.mu.Unlock()
		return
	}

	s.timeoutsOccurred++
	s.consecutiveTimeouts++
	metrics.RecordTimeout(s.cfg.SessionID)

	if s.cfg.MaxRetries > 0 && s.consecutiveTimeouts > s.cfg.MaxRetries {
		s.failure = errors.NewRetryExhaustedError(s.base, s.consecutiveTimeouts-1)
		s.timer.Stop()
		s.log.WithField("base", s.base).Error("Retry limit reached without progress")
		notify := s.cfg.OnAdvance
		s.mu.Unlock()
		if notify != nil {
			notify()
		}
		return
	}

	s.log.WithFields(map[string]interface{}{
		"base":     s.base,
		"next_seq": s.nextSeq,
	}).Info("Timeout, retransmitting window")

	for seq := s.base; seq < s.nextSeq; seq++ {
		pkt := s.window[seq]
		pkt.Timestamp = sendTime()
		s.window[seq] = pkt
		s.transmitLocked(pkt, true)
	}
	s.timer.Start(s.cfg.Timeout, s.onTimeout)

	s.mu.Unlock()
}

// transmitLocked pushes pkt through the loss simulator and onto the channel.
// A dropped packet still counts as sent: it is gone with no receiver-side
// trace, and only the timeout will recover it.
func (s *Sender) transmitLocked(pkt Packet, retransmission bool) {
	s.packetsSent++
	if retransmission {
		s.retransmissions++
	}

	dropped := s.cfg.Loss.ShouldDrop()
	metrics.RecordPacketSent(s.cfg.SessionID, retransmission, dropped)
	if dropped {
		s.packetsLost++
		s.log.WithField("seq", pkt.SeqNum).Info("Packet lost in channel")
		return
	}

	if err := s.out.WritePacket(pkt); err != nil {
		s.log.WithError(err).WithField("seq", pkt.SeqNum).Error("Failed to write packet")
		return
	}

	event := "Packet sent"
	if retransmission {
		event = "Packet retransmitted"
	}
	s.log.WithField("seq", pkt.SeqNum).Debug(event)
}

// InFlight returns the number of unacknowledged packets.
func (s *Sender) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.nextSeq - s.base)
}

// Err returns the terminal failure, if the retry limit was exhausted.
func (s *Sender) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Stats returns a snapshot of the sender's counters and window position.
func (s *Sender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SenderStats{
		PacketsSent:      s.packetsSent,
		PacketsLost:      s.packetsLost,
		Retransmissions:  s.retransmissions,
		AcksReceived:     s.acksReceived,
		TimeoutsOccurred: s.timeoutsOccurred,
		Base:             s.base,
		NextSeq:          s.nextSeq,
		Delivered:        s.base,
	}
}

// Close stops the timer and rejects further sends. Pending timer fires and ACK
// deliveries after Close are no-ops.
func (s *Sender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.timer.Stop()
}
