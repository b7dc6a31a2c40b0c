package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/gbn"
)

func TestPacketRoundTrip(t *testing.T) {
	p := gbn.Packet{SeqNum: 42, Data: []byte("hello"), Timestamp: 1234.5}

	data, err := EncodePacket(p)
	require.NoError(t, err)

	got, err := DecodePacket(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestAckRoundTrip(t *testing.T) {
	a := gbn.Ack{AckNum: 7, Timestamp: 99.25}

	data, err := EncodeAck(a)
	require.NoError(t, err)

	got, err := DecodeAck(data)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestDecodePacket_MalformedJSON(t *testing.T) {
	_, err := DecodePacket([]byte("{not json"))
	require.Error(t, err)
	assert.True(t, errors.IsDecodeError(err))
}

func TestDecodePacket_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing seq_num", `{"data":"aGk=","timestamp":1.0}`},
		{"missing timestamp", `{"seq_num":3,"data":"aGk="}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePacket([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.IsDecodeError(err))
		})
	}
}

func TestDecodePacket_EmptyPayloadAllowed(t *testing.T) {
	got, err := DecodePacket([]byte(`{"seq_num":0,"timestamp":5.0}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.SeqNum)
	assert.Empty(t, got.Data)
}

func TestDecodeAck_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing ack_num", `{"timestamp":1.0}`},
		{"missing timestamp", `{"ack_num":3}`},
		{"malformed", `[1,2,3`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAck([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.IsDecodeError(err))
		})
	}
}

func TestDecodePacket_WireFormat(t *testing.T) {
	// The channel carries plain JSON objects with snake_case keys.
	got, err := DecodePacket([]byte(`{"seq_num":5,"data":"aGVsbG8=","timestamp":10.5}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.SeqNum)
	assert.Equal(t, []byte("hello"), got.Data)
	assert.Equal(t, 10.5, got.Timestamp)
}
