package output

import (
	"io"
	"sync"
)

// FanoutSink duplicates the stream to multiple sinks. Writes go to every
// child in order; Flush runs in parallel.
type FanoutSink struct {
	sinks []Sink
}

func NewFanoutSink(sinks ...Sink) *FanoutSink {
	return &FanoutSink{
		sinks: sinks,
	}
}

func (f *FanoutSink) Write(line string) error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Write(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *FanoutSink) Flush() error {
	var wg sync.WaitGroup
	errs := make([]error, len(f.sinks))

	for i, s := range f.sinks {
		wg.Add(1)
		go func(idx int, s Sink) {
			defer wg.Done()
			errs[idx] = s.Flush()
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Ready reports true only when every child sink is ready.
func (f *FanoutSink) Ready() bool {
	for _, s := range f.sinks {
		if !s.Ready() {
			return false
		}
	}
	return true
}

// Close closes every child that holds resources.
func (f *FanoutSink) Close() error {
	var firstErr error
	for _, s := range f.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
