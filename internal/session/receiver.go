package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/errors"
	"github.com/zsiec/arq/internal/gbn"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/metrics"
	"github.com/zsiec/arq/internal/transport"
	"github.com/zsiec/arq/internal/wire"
)

// ReceiverSession drives the receive side: a goroutine reads datagrams off the
// transport, decodes them, and hands them to the engine, which acknowledges
// through the same transport.
type ReceiverSession struct {
	id        string
	receiver  *gbn.Receiver
	transport transport.Transport
	logger    logger.Logger
	ackLoss   *gbn.LossSimulator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// ReceiverOption adjusts receiver session construction.
type ReceiverOption func(*ReceiverSession)

// WithAckLossSimulator overrides the reverse-path loss simulator built from
// config.
func WithAckLossSimulator(loss *gbn.LossSimulator) ReceiverOption {
	return func(r *ReceiverSession) { r.ackLoss = loss }
}

// NewReceiverSession builds a receiver session from protocol config. deliver,
// when non-nil, gets each in-order payload as it is accepted.
func NewReceiverSession(cfg *config.ProtocolConfig, tr transport.Transport, log logger.Logger, deliver func(gbn.Packet), opts ...ReceiverOption) *ReceiverSession {
	id := uuid.New().String()
	slog := log.WithField("session_id", id).WithField("role", "receiver")

	var ackLoss *gbn.LossSimulator
	if cfg.AckLossProbability > 0 {
		if cfg.Seed != 0 {
			ackLoss = gbn.NewSeededLossSimulator(cfg.AckLossProbability, cfg.Seed)
		} else {
			ackLoss = gbn.NewLossSimulator(cfg.AckLossProbability)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &ReceiverSession{
		id:        id,
		transport: tr,
		logger:    slog,
		ackLoss:   ackLoss,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.receiver = gbn.NewReceiver(gbn.ReceiverConfig{
		SessionID: id,
		AckLoss:   s.ackLoss,
		Deliver:   deliver,
		Logger:    slog,
	}, gbn.AckWriterFunc(s.writeAck))

	return s
}

// ID returns the session identifier.
func (r *ReceiverSession) ID() string {
	return r.id
}

// Start launches the packet read loop.
func (r *ReceiverSession) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.NewValidationError("session already started")
	}
	r.started = true

	metrics.SessionStarted("receiver")
	r.logger.Info("Receiver session started")

	r.wg.Add(1)
	go r.readPackets()
	return nil
}

// Messages returns the in-order payloads accepted so far.
func (r *ReceiverSession) Messages() []gbn.DeliveredMessage {
	return r.receiver.Messages()
}

// Stats returns a snapshot of the engine counters.
func (r *ReceiverSession) Stats() gbn.ReceiverStats {
	return r.receiver.Stats()
}

// ExpectedSeq returns the next sequence number the engine will accept.
func (r *ReceiverSession) ExpectedSeq() uint64 {
	return r.receiver.ExpectedSeq()
}

// Stop tears the session down.
func (r *ReceiverSession) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	if started {
		metrics.SessionStopped("receiver")
	}
	r.logger.WithField("stats", r.receiver.Stats()).Info("Receiver session stopped")
	return nil
}

func (r *ReceiverSession) writeAck(ack gbn.Ack) error {
	data, err := wire.EncodeAck(ack)
	if err != nil {
		return err
	}
	return r.transport.Send(r.ctx, data)
}

func (r *ReceiverSession) readPackets() {
	defer r.wg.Done()

	for {
		data, err := r.transport.Receive(r.ctx)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.logger.WithError(err).Debug("Packet receive failed")
			return
		}

		pkt, err := wire.DecodePacket(data)
		if err != nil {
			metrics.RecordDecodeError(r.id)
			r.logger.WithError(err).Debug("Discarding malformed packet datagram")
			continue
		}

		r.receiver.OnPacketReceived(pkt)
	}
}
