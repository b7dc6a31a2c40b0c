// Package gbn implements the Go-Back-N ARQ engine: a sliding-window sender and
// a strict-order cumulative-ACK receiver providing reliable in-order delivery
// over a lossy, unordered datagram channel.
package gbn

import (
	"time"
)

// Packet is one unit of the message stream. SeqNum is assigned by the sender in
// strictly increasing order starting at 0 and is never reused within a session.
// Retransmissions carry the same SeqNum and Data with a fresh Timestamp.
type Packet struct {
	SeqNum    uint64  `json:"seq_num"`
	Data      []byte  `json:"data"`
	Timestamp float64 `json:"timestamp"`
}

// Ack is a cumulative acknowledgment: all packets with sequence number <= AckNum
// have been received in order. The receiver never negative-acknowledges.
type Ack struct {
	AckNum    uint64  `json:"ack_num"`
	Timestamp float64 `json:"timestamp"`
}

// PacketWriter delivers an outbound packet to the channel.
type PacketWriter interface {
	WritePacket(Packet) error
}

// PacketWriterFunc adapts a function to the PacketWriter interface.
type PacketWriterFunc func(Packet) error

func (f PacketWriterFunc) WritePacket(p Packet) error { return f(p) }

// AckWriter delivers an outbound acknowledgment to the channel.
type AckWriter interface {
	WriteAck(Ack) error
}

// AckWriterFunc adapts a function to the AckWriter interface.
type AckWriterFunc func(Ack) error

func (f AckWriterFunc) WriteAck(a Ack) error { return f(a) }

// sendTime is the wall-clock send time in seconds.
func sendTime() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
