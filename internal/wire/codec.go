// Package wire encodes Packet and Ack records as JSON datagrams. It is the
// serialization boundary: a datagram that fails to decode is discarded by the
// caller and never becomes a protocol event.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/gbn"
)

// EncodePacket serializes a packet for the channel.
func EncodePacket(p gbn.Packet) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.WrapInternalError(err, "failed to encode packet")
	}
	return data, nil
}

// EncodeAck serializes an acknowledgment for the channel.
func EncodeAck(a gbn.Ack) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, errors.WrapInternalError(err, "failed to encode ack")
	}
	return data, nil
}

// DecodePacket parses a packet datagram. Missing required fields fail the same
// way malformed JSON does: with a DECODE_ERROR the caller handles by dropping
// the datagram.
func DecodePacket(data []byte) (gbn.Packet, error) {
	var raw struct {
		SeqNum    *uint64  `json:"seq_num"`
		Data      []byte   `json:"data"`
		Timestamp *float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return gbn.Packet{}, errors.NewDecodeError(err)
	}
	if raw.SeqNum == nil {
		return gbn.Packet{}, errors.NewDecodeError(fmt.Errorf("missing field seq_num"))
	}
	if raw.Timestamp == nil {
		return gbn.Packet{}, errors.NewDecodeError(fmt.Errorf("missing field timestamp"))
	}
	return gbn.Packet{SeqNum: *raw.SeqNum, Data: raw.Data, Timestamp: *raw.Timestamp}, nil
}

// DecodeAck parses an acknowledgment datagram.
func DecodeAck(data []byte) (gbn.Ack, error) {
	var raw struct {
		AckNum    *uint64  `json:"ack_num"`
		Timestamp *float64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return gbn.Ack{}, errors.NewDecodeError(err)
	}
	if raw.AckNum == nil {
		return gbn.Ack{}, errors.NewDecodeError(fmt.Errorf("missing field ack_num"))
	}
	if raw.Timestamp == nil {
		return gbn.Ack{}, errors.NewDecodeError(fmt.Errorf("missing field timestamp"))
	}
	return gbn.Ack{AckNum: *raw.AckNum, Timestamp: *raw.Timestamp}, nil
}
