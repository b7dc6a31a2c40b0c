package gbn

// SenderStats is a read-only snapshot of the sender's counters. Counters only
// ever increase for the lifetime of a session.
type SenderStats struct {
	PacketsSent      uint64 `json:"packets_sent"`
	PacketsLost      uint64 `json:"packets_lost"`
	Retransmissions  uint64 `json:"retransmissions"`
	AcksReceived     uint64 `json:"acks_received"`
	TimeoutsOccurred uint64 `json:"timeouts_occurred"`

	// Window position at snapshot time. Delivered is the number of unique
	// messages confirmed delivered, which is exactly the base.
	Base      uint64 `json:"base"`
	NextSeq   uint64 `json:"next_seq"`
	Delivered uint64 `json:"delivered"`
}

// Efficiency is the ratio of unique messages delivered to transmission
// attempts, retransmissions included.
func (s SenderStats) Efficiency() float64 {
	if s.PacketsSent == 0 {
		return 0
	}
	return float64(s.Delivered) / float64(s.PacketsSent)
}

// ReceiverStats is a read-only snapshot of the receiver's counters.
type ReceiverStats struct {
	PacketsReceived   uint64 `json:"packets_received"`
	PacketsInOrder    uint64 `json:"packets_in_order"`
	PacketsOutOfOrder uint64 `json:"packets_out_of_order"`
	AcksSent          uint64 `json:"acks_sent"`
	AcksLost          uint64 `json:"acks_lost"`

	ExpectedSeq uint64 `json:"expected_seq"`
}

// AcceptanceRate is the fraction of received packets that arrived in order.
func (s ReceiverStats) AcceptanceRate() float64 {
	if s.PacketsReceived == 0 {
		return 0
	}
	return float64(s.PacketsInOrder) / float64(s.PacketsReceived)
}
