// Package transport carries encoded datagrams between the two protocol
// endpoints. Implementations deliver whole datagrams or nothing; ordering and
// loss are the protocol layer's problem, not the transport's.
package transport

import "context"

// Transport moves opaque datagrams in both directions. Send from a sender
// endpoint carries packets and Receive yields acks; a receiver endpoint sees
// the mirror image.
type Transport interface {
	// Send transmits one datagram toward the peer.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until a datagram arrives from the peer, the context is
	// canceled, or the transport is closed.
	Receive(ctx context.Context) ([]byte, error)

	// Close releases the underlying resources. Blocked Receive calls return
	// after Close.
	Close() error
}
