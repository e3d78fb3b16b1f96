package engine

import (
	"errors"
	"time"
)

var (
	// ErrBusTimeout reports that no frame arrived within the receive window.
	// It is the normal idle condition, not a failure.
	ErrBusTimeout = errors.New("bus: receive timed out")

	// ErrBusClosed reports that the bus is gone for good. Intake workers
	// treat it as fatal and exit their loop.
	ErrBusClosed = errors.New("bus: closed")
)

// Bus yields raw byte frames from the host message transport. Receive must be
// safe for concurrent callers; every intake worker polls the same bus.
type Bus interface {
	// Receive blocks for up to timeout waiting for the next frame.
	// Returns ErrBusTimeout when the window elapses empty and ErrBusClosed
	// once the bus is shut down and drained.
	Receive(timeout time.Duration) ([]byte, error)

	// Close releases the bus. Pending frames may still be received.
	Close() error
}
