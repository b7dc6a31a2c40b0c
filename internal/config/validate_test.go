package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProtocolConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  ProtocolConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid minimal",
			config: ProtocolConfig{WindowSize: 1, Timeout: time.Second},
		},
		{
			name:   "valid lossy",
			config: ProtocolConfig{WindowSize: 3, Timeout: 2 * time.Second, LossProbability: 0.25, AckLossProbability: 0.1},
		},
		{
			name:    "window too small",
			config:  ProtocolConfig{WindowSize: 0, Timeout: time.Second},
			wantErr: true,
			errMsg:  "window_size",
		},
		{
			name:    "timeout not positive",
			config:  ProtocolConfig{WindowSize: 3},
			wantErr: true,
			errMsg:  "timeout",
		},
		{
			name:    "loss probability above one",
			config:  ProtocolConfig{WindowSize: 3, Timeout: time.Second, LossProbability: 1.01},
			wantErr: true,
			errMsg:  "loss_probability",
		},
		{
			name:    "negative ack loss probability",
			config:  ProtocolConfig{WindowSize: 3, Timeout: time.Second, AckLossProbability: -0.1},
			wantErr: true,
			errMsg:  "ack_loss_probability",
		},
		{
			name:    "negative max retries",
			config:  ProtocolConfig{WindowSize: 3, Timeout: time.Second, MaxRetries: -1},
			wantErr: true,
			errMsg:  "max_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransportConfigValidation(t *testing.T) {
	valid := TransportConfig{
		ListenAddr:  "0.0.0.0",
		Port:        12345,
		RemoteAddr:  "localhost:12345",
		BufferSize:  4096,
		ReadTimeout: time.Second,
		MaxDatagram: 65535,
	}
	assert.NoError(t, valid.Validate())

	badPort := valid
	badPort.Port = 0
	assert.Error(t, badPort.Validate())

	noRemote := valid
	noRemote.RemoteAddr = ""
	assert.Error(t, noRemote.Validate())

	tinyDatagram := valid
	tinyDatagram.MaxDatagram = 100
	assert.Error(t, tinyDatagram.Validate())
}

func TestLoggingConfigValidation(t *testing.T) {
	assert.NoError(t, (&LoggingConfig{Level: "info", Format: "json"}).Validate())
	assert.NoError(t, (&LoggingConfig{Level: "debug", Format: "text"}).Validate())
	assert.Error(t, (&LoggingConfig{Level: "verbose", Format: "json"}).Validate())
	assert.Error(t, (&LoggingConfig{Level: "info", Format: "xml"}).Validate())
}

func TestRegistryConfigValidation(t *testing.T) {
	disabled := RegistryConfig{}
	assert.NoError(t, disabled.Validate())

	enabled := RegistryConfig{Enabled: true, RedisAddr: "localhost:6379", TTL: time.Minute}
	assert.NoError(t, enabled.Validate())

	missingAddr := RegistryConfig{Enabled: true, TTL: time.Minute}
	assert.Error(t, missingAddr.Validate())
}
