package config

import (
	"fmt"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}

	if err := c.Protocol.Validate(); err != nil {
		return fmt.Errorf("protocol config: %w", err)
	}

	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.Port)
	}

	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	return nil
}

func (t *TransportConfig) Validate() error {
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("invalid transport port: %d", t.Port)
	}

	if t.RemoteAddr == "" {
		return fmt.Errorf("remote_addr is required")
	}

	if t.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive")
	}

	if t.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if t.MaxDatagram < 512 {
		return fmt.Errorf("max_datagram too small: %d", t.MaxDatagram)
	}

	return nil
}

func (p *ProtocolConfig) Validate() error {
	if p.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", p.WindowSize)
	}

	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	}

	if p.LossProbability < 0 || p.LossProbability > 1 {
		return fmt.Errorf("loss_probability must be in [0,1], got %f", p.LossProbability)
	}

	if p.AckLossProbability < 0 || p.AckLossProbability > 1 {
		return fmt.Errorf("ack_loss_probability must be in [0,1], got %f", p.AckLossProbability)
	}

	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}

	if p.Deadline < 0 {
		return fmt.Errorf("deadline must not be negative")
	}

	if p.PacketsPerSecond < 0 {
		return fmt.Errorf("packets_per_second must not be negative")
	}

	return nil
}

func (r *RegistryConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	if r.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when registry is enabled")
	}

	if r.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", m.Port)
	}

	if m.Path == "" {
		return fmt.Errorf("metrics path is required")
	}

	return nil
}
