package output

import (
	"fmt"
	"os"
)

// ConsoleSink writes lines to stdout.
type ConsoleSink struct{}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

func (c *ConsoleSink) Write(line string) error {
	_, err := fmt.Fprintln(os.Stdout, line)
	return err
}

// Flush is a no-op; stdout is unbuffered here.
func (c *ConsoleSink) Flush() error { return nil }

func (c *ConsoleSink) Ready() bool { return true }
