// Package chat provides the relay core shared by all transports: the
// connection registry, fan-out, per-connection sessions and turn execution.
package chat

import "context"

// Conn abstracts a bidirectional text connection.
// This interface isolates transport details from relay logic.
type Conn interface {
	// ID identifies the connection among all live connections.
	ID() string

	// Read reads a single text frame.
	// Returns io.EOF when the peer closed the connection.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single text frame. Implementations must be safe for
	// concurrent use.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
