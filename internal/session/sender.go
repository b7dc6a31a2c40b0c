// Package session binds the Go-Back-N engine to a transport. A session owns
// the goroutines that pump datagrams between the wire and the engine, and the
// lifecycle around them.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/gbn"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/metrics"
	"github.com/zsiec/arq/internal/transport"
	"github.com/zsiec/arq/internal/wire"
)

// SenderSession drives the send side of a connection: messages go in through
// Send, the engine windows and retransmits them, and an internal goroutine
// feeds incoming acknowledgments back to the engine.
type SenderSession struct {
	id        string
	sender    *gbn.Sender
	transport transport.Transport
	logger    logger.Logger
	limiter   *rate.Limiter
	loss      *gbn.LossSimulator

	// advanceCh wakes Send callers blocked on a full window. Capacity 1: a
	// pending wakeup coalesces with any number of base advances.
	advanceCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// SenderOption adjusts sender session construction.
type SenderOption func(*SenderSession)

// WithLossSimulator overrides the forward-path loss simulator built from
// config, letting callers script deterministic drop sequences.
func WithLossSimulator(loss *gbn.LossSimulator) SenderOption {
	return func(s *SenderSession) { s.loss = loss }
}

// NewSenderSession builds a sender session from protocol config. The transport
// is borrowed, not owned; the caller closes it after Stop.
func NewSenderSession(cfg *config.ProtocolConfig, tr transport.Transport, log logger.Logger, opts ...SenderOption) *SenderSession {
	id := uuid.New().String()
	slog := log.WithField("session_id", id).WithField("role", "sender")

	var loss *gbn.LossSimulator
	if cfg.LossProbability > 0 {
		if cfg.Seed != 0 {
			loss = gbn.NewSeededLossSimulator(cfg.LossProbability, cfg.Seed)
		} else {
			loss = gbn.NewLossSimulator(cfg.LossProbability)
		}
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.Deadline > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.Deadline)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	s := &SenderSession{
		id:        id,
		transport: tr,
		logger:    slog,
		loss:      loss,
		advanceCh: make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.PacketsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.PacketsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sender = gbn.NewSender(gbn.SenderConfig{
		SessionID:  id,
		WindowSize: cfg.WindowSize,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Loss:       s.loss,
		Logger:     slog,
		OnAdvance:  s.notifyAdvance,
	}, gbn.PacketWriterFunc(s.writePacket))

	return s
}

// ID returns the session identifier.
func (s *SenderSession) ID() string {
	return s.id
}

// Start launches the acknowledgment listener.
func (s *SenderSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.NewValidationError("session already started")
	}
	s.started = true

	metrics.SessionStarted("sender")
	s.logger.Info("Sender session started")

	s.wg.Add(1)
	go s.listenAcks()
	return nil
}

// Send queues one message, blocking while the window is full. It returns the
// engine's failure once the retry limit is exhausted, or the context error
// once the session deadline passes or Stop runs.
func (s *SenderSession) Send(data []byte) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return err
		}
	}

	for {
		err := s.sender.Send(data)
		if err == nil {
			return nil
		}
		if !errors.IsWindowFull(err) {
			return err
		}

		select {
		case <-s.advanceCh:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}

		// A terminal engine failure also signals advanceCh so blocked
		// senders observe it.
		if ferr := s.sender.Err(); ferr != nil {
			return ferr
		}
	}
}

// Drain blocks until every queued message has been acknowledged, the engine
// fails, or the context is canceled.
func (s *SenderSession) Drain(ctx context.Context) error {
	for {
		if err := s.sender.Err(); err != nil {
			return err
		}
		if s.sender.InFlight() == 0 {
			return nil
		}

		select {
		case <-s.advanceCh:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}

// Stats returns a snapshot of the engine counters.
func (s *SenderSession) Stats() gbn.SenderStats {
	return s.sender.Stats()
}

// Err reports the engine's terminal failure, if any.
func (s *SenderSession) Err() error {
	return s.sender.Err()
}

// Stop tears the session down. In-flight packets are abandoned; call Drain
// first for a clean shutdown.
func (s *SenderSession) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	s.cancel()
	s.sender.Close()
	s.wg.Wait()

	if started {
		metrics.SessionStopped("sender")
	}
	s.logger.WithField("stats", s.sender.Stats()).Info("Sender session stopped")
	return nil
}

func (s *SenderSession) writePacket(pkt gbn.Packet) error {
	data, err := wire.EncodePacket(pkt)
	if err != nil {
		return err
	}
	return s.transport.Send(s.ctx, data)
}

func (s *SenderSession) notifyAdvance() {
	select {
	case s.advanceCh <- struct{}{}:
	default:
	}
}

func (s *SenderSession) listenAcks() {
	defer s.wg.Done()

	for {
		data, err := s.transport.Receive(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Debug("Ack receive failed")
			return
		}

		ack, err := wire.DecodeAck(data)
		if err != nil {
			metrics.RecordDecodeError(s.id)
			s.logger.WithError(err).Debug("Discarding malformed ack datagram")
			continue
		}

		s.sender.OnAckReceived(ack)
	}
}
