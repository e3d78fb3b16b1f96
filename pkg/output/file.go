package output

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// FileSink appends lines to a file through a buffered writer. Flush drains
// the buffer and syncs the file to disk.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// NewFileSink opens (or creates) the file at path for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink file %s: %w", path, err)
	}
	return &FileSink{
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

func (s *FileSink) Write(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("sink file is closed")
	}
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *FileSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

// Close flushes and releases the file. The sink is not Ready afterwards.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Name returns the backing file path.
func (s *FileSink) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return "file:<closed>"
	}
	return "file:" + s.file.Name()
}
