// Package harness runs self-contained protocol experiments: a sender and a
// receiver wired over an in-memory channel, driven through a scenario and
// summarized into derived performance metrics.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/zsiec/arq/internal/config"
	"github.com/zsiec/arq/internal/gbn"
	"github.com/zsiec/arq/internal/logger"
	"github.com/zsiec/arq/internal/session"
	"github.com/zsiec/arq/internal/transport"
)

// Scenario describes one experiment.
type Scenario struct {
	Name               string
	Messages           []string
	WindowSize         int
	Timeout            time.Duration
	LossProbability    float64
	AckLossProbability float64
	Seed               int64
	MaxRetries         int
}

// Result holds the raw counters and derived metrics of one completed run.
type Result struct {
	Scenario Scenario

	TransmissionTime time.Duration
	Sender           gbn.SenderStats
	Receiver         gbn.ReceiverStats
	Delivered        []gbn.DeliveredMessage

	// Derived metrics, in the units operators expect.
	Throughput         float64 // delivered messages per second
	Goodput            float64 // acknowledgments per second
	EffectiveLossRate  float64 // fraction of transmissions lost in the channel
	ProtocolEfficiency float64 // delivered / packets sent
	RetransmissionRate float64 // retransmissions per message
	AcceptanceRate     float64 // in-order fraction at the receiver
}

// Runner executes scenarios.
type Runner struct {
	logger logger.Logger
}

// NewRunner creates a scenario runner.
func NewRunner(log logger.Logger) *Runner {
	return &Runner{logger: log.WithField("component", "harness")}
}

// Run executes one scenario to completion and derives its metrics. The run
// fails if the sender gives up before every message is acknowledged.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	if len(sc.Messages) == 0 {
		return nil, fmt.Errorf("scenario %q has no messages", sc.Name)
	}
	if sc.WindowSize <= 0 {
		return nil, fmt.Errorf("scenario %q has no window", sc.Name)
	}

	cfg := &config.ProtocolConfig{
		WindowSize:         sc.WindowSize,
		Timeout:            sc.Timeout,
		LossProbability:    sc.LossProbability,
		AckLossProbability: sc.AckLossProbability,
		Seed:               sc.Seed,
		MaxRetries:         sc.MaxRetries,
	}

	a, b := transport.NewPipe()
	defer a.Close()

	recv := session.NewReceiverSession(cfg, b, r.logger, nil)
	if err := recv.Start(); err != nil {
		return nil, err
	}
	defer recv.Stop()

	send := session.NewSenderSession(cfg, a, r.logger)
	if err := send.Start(); err != nil {
		return nil, err
	}
	defer send.Stop()

	r.logger.WithFields(map[string]interface{}{
		"scenario":    sc.Name,
		"messages":    len(sc.Messages),
		"window_size": sc.WindowSize,
		"loss":        sc.LossProbability,
	}).Info("Running scenario")

	start := time.Now()
	for _, msg := range sc.Messages {
		if err := send.Send([]byte(msg)); err != nil {
			return nil, fmt.Errorf("scenario %q: send failed: %w", sc.Name, err)
		}
	}
	if err := send.Drain(ctx); err != nil {
		return nil, fmt.Errorf("scenario %q: drain failed: %w", sc.Name, err)
	}
	elapsed := time.Since(start)

	// The last ack has been processed by the sender, but the receiver's
	// delivery bookkeeping is on another goroutine.
	deadline := time.Now().Add(time.Second)
	for len(recv.Messages()) < len(sc.Messages) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	result := &Result{
		Scenario:         sc,
		TransmissionTime: elapsed,
		Sender:           send.Stats(),
		Receiver:         recv.Stats(),
		Delivered:        recv.Messages(),
	}
	result.derive()
	return result, nil
}

func (res *Result) derive() {
	seconds := res.TransmissionTime.Seconds()
	if seconds > 0 {
		res.Throughput = float64(len(res.Delivered)) / seconds
		res.Goodput = float64(res.Sender.AcksReceived) / seconds
	}
	if res.Sender.PacketsSent > 0 {
		res.EffectiveLossRate = float64(res.Sender.PacketsLost) / float64(res.Sender.PacketsSent)
	}
	res.ProtocolEfficiency = res.Sender.Efficiency()
	if n := len(res.Scenario.Messages); n > 0 {
		res.RetransmissionRate = float64(res.Sender.Retransmissions) / float64(n)
	}
	res.AcceptanceRate = res.Receiver.AcceptanceRate()
}
