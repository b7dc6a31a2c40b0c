package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/logger"
)

const defaultMaxDatagram = 65507

// UDPClient is the dialing side. It sends packets to a fixed remote and
// receives acks on the same socket.
type UDPClient struct {
	conn        *net.UDPConn
	readTimeout time.Duration
	maxDatagram int
	logger      logger.Logger
	closeOnce   sync.Once
}

// NewUDPClient dials the remote endpoint from the transport config.
func NewUDPClient(cfg *config.TransportConfig, log logger.Logger) (*UDPClient, error) {
	raddr, err := net.ResolveUDPAddr("udp", cfg.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve remote address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RemoteAddr, err)
	}

	if cfg.BufferSize > 0 {
		if err := conn.SetReadBuffer(cfg.BufferSize); err != nil {
			log.WithError(err).Warn("Failed to set read buffer size")
		}
		if err := conn.SetWriteBuffer(cfg.BufferSize); err != nil {
			log.WithError(err).Warn("Failed to set write buffer size")
		}
	}

	c := &UDPClient{
		conn:        conn,
		readTimeout: cfg.ReadTimeout,
		maxDatagram: cfg.MaxDatagram,
		logger:      log.WithField("component", "udp_client"),
	}
	if c.readTimeout <= 0 {
		c.readTimeout = time.Second
	}
	if c.maxDatagram <= 0 {
		c.maxDatagram = defaultMaxDatagram
	}

	c.logger.WithField("remote", raddr.String()).Info("UDP client connected")
	return c, nil
}

// Send transmits one datagram to the remote endpoint.
func (c *UDPClient) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return errors.NewTransportError(err, "failed to send datagram")
	}
	return nil
}

// Receive blocks until a datagram arrives from the remote endpoint. The read
// deadline is refreshed each pass so cancellation is observed within one
// readTimeout.
func (c *UDPClient) Receive(ctx context.Context) ([]byte, error) {
	buf := make([]byte, c.maxDatagram)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		n, err := c.conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return nil, errors.NewTransportError(err, "failed to receive datagram")
		}

		out := make([]byte, n)
		copy(out, buf[:n])
		return out, nil
	}
}

// Close shuts the socket down. Safe to call more than once.
func (c *UDPClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// LocalAddr reports the socket's local address.
func (c *UDPClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// UDPServer is the listening side. Packets arrive from whichever peer speaks
// first; acks flow back to the most recent peer address.
type UDPServer struct {
	conn        *net.UDPConn
	readTimeout time.Duration
	maxDatagram int
	logger      logger.Logger
	closeOnce   sync.Once

	mu   sync.RWMutex
	peer *net.UDPAddr
}

// NewUDPServer binds the listening socket from the transport config.
func NewUDPServer(cfg *config.TransportConfig, log logger.Logger) (*UDPServer, error) {
	laddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.ListenAddr, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve listen address: %w", err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", laddr, err)
	}

	if cfg.BufferSize > 0 {
		if err := conn.SetReadBuffer(cfg.BufferSize); err != nil {
			log.WithError(err).Warn("Failed to set read buffer size")
		}
		if err := conn.SetWriteBuffer(cfg.BufferSize); err != nil {
			log.WithError(err).Warn("Failed to set write buffer size")
		}
	}

	s := &UDPServer{
		conn:        conn,
		readTimeout: cfg.ReadTimeout,
		maxDatagram: cfg.MaxDatagram,
		logger:      log.WithField("component", "udp_server"),
	}
	if s.readTimeout <= 0 {
		s.readTimeout = time.Second
	}
	if s.maxDatagram <= 0 {
		s.maxDatagram = defaultMaxDatagram
	}

	s.logger.WithField("address", conn.LocalAddr().String()).Info("UDP server listening")
	return s, nil
}

// Receive blocks until a datagram arrives and remembers the peer address so
// replies from Send reach it.
func (s *UDPServer) Receive(ctx context.Context) ([]byte, error) {
	buf := make([]byte, s.maxDatagram)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return nil, errors.NewTransportError(err, "failed to receive datagram")
		}

		s.mu.Lock()
		s.peer = addr
		s.mu.Unlock()

		out := make([]byte, n)
		copy(out, buf[:n])
		return out, nil
	}
}

// Send transmits one datagram back to the most recently seen peer.
func (s *UDPServer) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	peer := s.peer
	s.mu.RUnlock()
	if peer == nil {
		return errors.NewTransportError(nil, "no peer address known yet")
	}

	if _, err := s.conn.WriteToUDP(data, peer); err != nil {
		return errors.NewTransportError(err, "failed to send datagram")
	}
	return nil
}

// Close shuts the socket down. Safe to call more than once.
func (s *UDPServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

// LocalAddr reports the bound address, useful when Port was 0.
func (s *UDPServer) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}
