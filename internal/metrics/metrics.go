package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sender-side protocol metrics
	packetsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_packets_sent_total",
		Help: "Total packets sent, including retransmissions and simulated drops",
	}, []string{"session_id"})

	packetsLostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_packets_lost_total",
		Help: "Total packets dropped by the loss simulator on the forward path",
	}, []string{"session_id"})

	retransmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_retransmissions_total",
		Help: "Total Go-Back-N retransmissions",
	}, []string{"session_id"})

	timeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_timeouts_total",
		Help: "Total retransmission timer expirations",
	}, []string{"session_id"})

	acksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_acks_received_total",
		Help: "Total cumulative acknowledgments applied to the window",
	}, []string{"session_id"})

	windowBase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arq_window_base",
		Help: "Oldest unacknowledged sequence number",
	}, []string{"session_id"})

	windowInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arq_window_in_flight",
		Help: "Packets currently in the sliding window",
	}, []string{"session_id"})

	// Receiver-side protocol metrics
	packetsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_packets_received_total",
		Help: "Total packets received",
	}, []string{"session_id"})

	packetsInOrderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_packets_in_order_total",
		Help: "Total packets accepted in order and delivered",
	}, []string{"session_id"})

	packetsOutOfOrderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_packets_out_of_order_total",
		Help: "Total packets discarded for arriving out of order",
	}, []string{"session_id"})

	acksSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_acks_sent_total",
		Help: "Total acknowledgments sent",
	}, []string{"session_id"})

	acksLostTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_acks_lost_total",
		Help: "Total acknowledgments dropped by the loss simulator on the reverse path",
	}, []string{"session_id"})

	// Boundary metrics
	decodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arq_decode_errors_total",
		Help: "Total discarded malformed datagrams",
	}, []string{"session_id"})

	sessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arq_sessions_active",
		Help: "Number of active sessions by role",
	}, []string{"role"})
)

// RecordPacketSent counts a transmission attempt, dropped or not.
func RecordPacketSent(sessionID string, retransmission, dropped bool) {
	packetsSentTotal.WithLabelValues(sessionID).Inc()
	if retransmission {
		retransmissionsTotal.WithLabelValues(sessionID).Inc()
	}
	if dropped {
		packetsLostTotal.WithLabelValues(sessionID).Inc()
	}
}

// RecordTimeout counts a retransmission timer expiration.
func RecordTimeout(sessionID string) {
	timeoutsTotal.WithLabelValues(sessionID).Inc()
}

// RecordAckReceived counts an applied cumulative ACK.
func RecordAckReceived(sessionID string) {
	acksReceivedTotal.WithLabelValues(sessionID).Inc()
}

// UpdateWindow publishes the window position after any base or nextSeq change.
func UpdateWindow(sessionID string, base, nextSeq uint64) {
	windowBase.WithLabelValues(sessionID).Set(float64(base))
	windowInFlight.WithLabelValues(sessionID).Set(float64(nextSeq - base))
}

// RecordPacketReceived counts an inbound packet and its disposition.
func RecordPacketReceived(sessionID string, inOrder bool) {
	packetsReceivedTotal.WithLabelValues(sessionID).Inc()
	if inOrder {
		packetsInOrderTotal.WithLabelValues(sessionID).Inc()
	} else {
		packetsOutOfOrderTotal.WithLabelValues(sessionID).Inc()
	}
}

// RecordAckSent counts an outbound ACK, or its simulated loss.
func RecordAckSent(sessionID string, dropped bool) {
	if dropped {
		acksLostTotal.WithLabelValues(sessionID).Inc()
		return
	}
	acksSentTotal.WithLabelValues(sessionID).Inc()
}

// RecordDecodeError counts a discarded malformed datagram.
func RecordDecodeError(sessionID string) {
	decodeErrorsTotal.WithLabelValues(sessionID).Inc()
}

// SessionStarted increments the active session gauge for a role.
func SessionStarted(role string) {
	sessionsActive.WithLabelValues(role).Inc()
}

// SessionStopped decrements the active session gauge for a role.
func SessionStopped(role string) {
	sessionsActive.WithLabelValues(role).Dec()
}
