// Package output defines where delivered log lines go.
package output

import (
	"fmt"

	"centrallog/pkg/config"
)

// Sink receives rendered log lines from the drain worker. Implementations
// must tolerate concurrent Write/Flush from a single caller only; the drain
// worker is the sole writer.
type Sink interface {
	// Write outputs a single line.
	Write(line string) error

	// Flush pushes any buffered output to its destination.
	Flush() error

	// Ready reports whether the sink can currently accept writes.
	Ready() bool
}

// New builds a sink from configuration. A fanout entry builds each of its
// outputs and duplicates the stream across them.
func New(cfg config.SinkConfig) (Sink, error) {
	switch cfg.Type {
	case "console":
		return NewConsoleSink(), nil
	case "file":
		return NewFileSink(cfg.Path)
	case "http":
		return NewHTTPSink(cfg.URL, nil), nil
	case "fanout":
		if len(cfg.Outputs) == 0 {
			return nil, fmt.Errorf("fanout sink has no outputs")
		}
		children := make([]Sink, 0, len(cfg.Outputs))
		for _, child := range cfg.Outputs {
			s, err := New(child)
			if err != nil {
				return nil, err
			}
			children = append(children, s)
		}
		return NewFanoutSink(children...), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
