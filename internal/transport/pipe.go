package transport

import (
	"context"
	"sync"

	"github.com/zsiec/arq/internal/errors"
)

const pipeDepth = 64

// Pipe is one end of an in-memory datagram pair. Both ends buffer pipeDepth
// datagrams so a sender holding its own locks never blocks on delivery.
type Pipe struct {
	out chan []byte
	in  chan []byte

	closed chan struct{}
	once   *sync.Once
}

// NewPipe returns two connected in-memory transports. Data sent on one end is
// received on the other.
func NewPipe() (*Pipe, *Pipe) {
	ab := make(chan []byte, pipeDepth)
	ba := make(chan []byte, pipeDepth)
	closed := make(chan struct{})
	once := &sync.Once{}

	a := &Pipe{out: ab, in: ba, closed: closed, once: once}
	b := &Pipe{out: ba, in: ab, closed: closed, once: once}
	return a, b
}

// Send queues one datagram for the peer. It fails rather than blocks when the
// peer has stopped draining and the buffer is full.
func (p *Pipe) Send(ctx context.Context, data []byte) error {
	out := make([]byte, len(data))
	copy(out, data)

	select {
	case <-p.closed:
		return errors.NewTransportError(nil, "pipe closed")
	case <-ctx.Done():
		return ctx.Err()
	case p.out <- out:
		return nil
	default:
		return errors.NewTransportError(nil, "pipe buffer full")
	}
}

// Receive blocks until a datagram arrives, the context is canceled, or either
// end closes.
func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	default:
	}

	select {
	case data := <-p.in:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, errors.NewTransportError(nil, "pipe closed")
	}
}

// Close tears down both ends. Safe to call from either side, more than once.
func (p *Pipe) Close() error {
	p.once.Do(func() {
		close(p.closed)
	})
	return nil
}
